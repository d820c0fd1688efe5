package masquerade

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the configured masquerade devices.
//
// Devices are indexed by their own ID and by the base device they watch, so
// a base device change only visits the devices that reference it. Every
// lookup-then-mutate sequence runs under a single lock.
//
// All public methods are thread-safe and return deep copies.
type Registry struct {
	mu      sync.RWMutex
	devices map[DeviceID]*Device
	byBase  map[DeviceID]map[DeviceID]struct{}
	logger  Logger
}

// Stats summarises the registry contents.
type Stats struct {
	Total       int          `json:"total"`
	Enabled     int          `json:"enabled"`
	Disabled    int          `json:"disabled"`
	BaseDevices int          `json:"base_devices"`
	ByKind      map[Kind]int `json:"by_kind"`
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		devices: make(map[DeviceID]*Device),
		byBase:  make(map[DeviceID]map[DeviceID]struct{}),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Add registers a device. Returns ErrDuplicateID if the ID is already present.
func (r *Registry) Add(dev Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.devices[dev.ID]; exists {
		return fmt.Errorf("%w: %d", ErrDuplicateID, dev.ID)
	}

	r.devices[dev.ID] = dev.DeepCopy()
	ids, ok := r.byBase[dev.BaseDeviceID]
	if !ok {
		ids = make(map[DeviceID]struct{})
		r.byBase[dev.BaseDeviceID] = ids
	}
	ids[dev.ID] = struct{}{}

	r.logger.Debug("masquerade device registered",
		"device_id", dev.ID,
		"base_device_id", dev.BaseDeviceID,
		"kind", dev.Kind,
	)
	return nil
}

// Remove unregisters a device. Returns ErrNotFound if it is not present.
func (r *Registry) Remove(id DeviceID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	dev, ok := r.devices[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	delete(r.devices, id)
	if ids, ok := r.byBase[dev.BaseDeviceID]; ok {
		delete(ids, id)
		if len(ids) == 0 {
			delete(r.byBase, dev.BaseDeviceID)
		}
	}

	r.logger.Debug("masquerade device unregistered", "device_id", id)
	return nil
}

// Get returns the device with the given ID.
func (r *Registry) Get(id DeviceID) (*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dev, ok := r.devices[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return dev.DeepCopy(), nil
}

// List returns all devices sorted by ID.
func (r *Registry) List() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, *d.DeepCopy())
	}
	sortByID(out)
	return out
}

// FindByBaseDevice returns every device watching baseID, sorted by ID.
// The result is empty when no device references baseID.
func (r *Registry) FindByBaseDevice(baseID DeviceID) []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byBase[baseID]
	out := make([]Device, 0, len(ids))
	for id := range ids {
		out = append(out, *r.devices[id].DeepCopy())
	}
	sortByID(out)
	return out
}

// DisableByBase marks every device watching baseID as disabled and returns
// the affected devices, sorted by ID.
func (r *Registry) DisableByBase(baseID DeviceID) []Device {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := r.byBase[baseID]
	out := make([]Device, 0, len(ids))
	for id := range ids {
		dev := r.devices[id]
		dev.Enabled = false
		out = append(out, *dev.DeepCopy())
	}
	sortByID(out)
	return out
}

// SetEnabled updates the enabled flag of a device.
func (r *Registry) SetEnabled(id DeviceID, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	dev, ok := r.devices[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	dev.Enabled = enabled
	return nil
}

// Count returns the number of registered devices.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// Stats returns a summary of the registry. ByKind lists every kind, with
// zero counts included.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Stats{
		Total:       len(r.devices),
		BaseDevices: len(r.byBase),
		ByKind:      make(map[Kind]int),
	}
	for _, k := range AllKinds() {
		s.ByKind[k] = 0
	}
	for _, d := range r.devices {
		s.ByKind[d.Kind]++
		if d.Enabled {
			s.Enabled++
		} else {
			s.Disabled++
		}
	}
	return s
}

func sortByID(devices []Device) {
	sort.Slice(devices, func(i, j int) bool {
		return devices[i].ID < devices[j].ID
	})
}
