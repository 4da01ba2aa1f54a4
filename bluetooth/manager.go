package bluetooth

import (
	"fmt"
	"log"

	"github.com/godbus/dbus/v5"

	"github.com/openglass/glassesd/status"
)

// Manager owns the system bus connection and the lifetime of the exported
// GATT application and advertisement.
type Manager struct {
	conn      *dbus.Conn
	publisher *status.Publisher

	app         *application
	adv         *advertisement
	adapterPath dbus.ObjectPath
}

func NewManager(publisher *status.Publisher, dispatcher *Dispatcher, localName string) (*Manager, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system bus: %w", err)
	}

	control := &controlCharacteristic{dispatcher: dispatcher}
	statusChrc := &statusCharacteristic{conn: conn, publisher: publisher}

	return &Manager{
		conn:      conn,
		publisher: publisher,
		app:       newApplication(control, statusChrc),
		adv:       &advertisement{localName: localName},
	}, nil
}

// Start exports the object tree and registers it with bluez. Any failure
// here means the device is unreachable over BLE, so callers treat errors as
// fatal.
func (m *Manager) Start() error {
	adapterPath, err := m.findAdapter()
	if err != nil {
		return err
	}
	m.adapterPath = adapterPath
	log.Printf("BLE: using adapter %s", adapterPath)

	if err := m.export(); err != nil {
		return err
	}

	adapter := m.conn.Object(bluezBusName, m.adapterPath)

	call := adapter.Call(gattManagerIface+".RegisterApplication", 0,
		dbus.ObjectPath(appPath), map[string]dbus.Variant{})
	if call.Err != nil {
		return fmt.Errorf("failed to register gatt application: %w", call.Err)
	}
	log.Printf("BLE: gatt application registered")

	call = adapter.Call(advManagerIface+".RegisterAdvertisement", 0,
		dbus.ObjectPath(advPath), map[string]dbus.Variant{})
	if call.Err != nil {
		return fmt.Errorf("failed to register advertisement: %w", call.Err)
	}
	log.Printf("BLE: advertising as %q", m.adv.localName)

	return nil
}

// Stop unregisters from bluez and drops the bus connection. Unregister
// failures are logged only; the daemon is going down either way.
func (m *Manager) Stop() {
	if m.adapterPath != "" {
		adapter := m.conn.Object(bluezBusName, m.adapterPath)
		if call := adapter.Call(advManagerIface+".UnregisterAdvertisement", 0, dbus.ObjectPath(advPath)); call.Err != nil {
			log.Printf("BLE: failed to unregister advertisement: %v", call.Err)
		}
		if call := adapter.Call(gattManagerIface+".UnregisterApplication", 0, dbus.ObjectPath(appPath)); call.Err != nil {
			log.Printf("BLE: failed to unregister application: %v", call.Err)
		}
	}
	m.publisher.Unsubscribe(statusSubscriberID)
	if err := m.conn.Close(); err != nil {
		log.Printf("BLE: failed to close bus connection: %v", err)
	}
}

func (m *Manager) export() error {
	if err := m.conn.Export(m.app, appPath, dbusOMIface); err != nil {
		return fmt.Errorf("failed to export application: %w", err)
	}
	if err := m.conn.Export(m.app.control, controlCharPath, gattChrcIface); err != nil {
		return fmt.Errorf("failed to export control characteristic: %w", err)
	}
	if err := m.conn.Export(m.app.status, statusCharPath, gattChrcIface); err != nil {
		return fmt.Errorf("failed to export status characteristic: %w", err)
	}
	if err := m.conn.Export(m.adv, advPath, advIface); err != nil {
		return fmt.Errorf("failed to export advertisement: %w", err)
	}
	if err := m.conn.Export(m.adv, advPath, dbusPropsIface); err != nil {
		return fmt.Errorf("failed to export advertisement properties: %w", err)
	}
	return nil
}

// findAdapter walks the bluez object tree for the first object implementing
// Adapter1, normally /org/bluez/hci0.
func (m *Manager) findAdapter() (dbus.ObjectPath, error) {
	var objects map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	root := m.conn.Object(bluezBusName, "/")
	if err := root.Call(dbusOMIface+".GetManagedObjects", 0).Store(&objects); err != nil {
		return "", fmt.Errorf("failed to enumerate bluez objects: %w", err)
	}
	for path, ifaces := range objects {
		if _, ok := ifaces[adapterIface]; ok {
			return path, nil
		}
	}
	return "", fmt.Errorf("no bluetooth adapter found")
}
