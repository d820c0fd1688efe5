// Package influxdb records masquerade telemetry in InfluxDB.
//
// Numeric state writes (value sensor readings, dimmer brightness, speed
// levels) and dispatched base commands are written as points through the
// non-blocking, batched write API of influxdb-client-go v2. Write errors
// arrive asynchronously through the callback set with SetOnError.
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	client.WriteStateMetric(42, "dimmer", "brightnessLevel", 50)
package influxdb
