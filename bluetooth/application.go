package bluetooth

import (
	"github.com/godbus/dbus/v5"
)

// application is the root of the exported GATT object tree. BlueZ walks it
// once at registration time through GetManagedObjects.
type application struct {
	control *controlCharacteristic
	status  *statusCharacteristic
}

func newApplication(control *controlCharacteristic, status *statusCharacteristic) *application {
	return &application{control: control, status: status}
}

func (a *application) GetManagedObjects() (map[dbus.ObjectPath]map[string]map[string]dbus.Variant, *dbus.Error) {
	objects := map[dbus.ObjectPath]map[string]map[string]dbus.Variant{
		servicePath: {
			gattServiceIface: {
				"UUID":    dbus.MakeVariant(ServiceUUID),
				"Primary": dbus.MakeVariant(true),
				"Characteristics": dbus.MakeVariant([]dbus.ObjectPath{
					controlCharPath,
					statusCharPath,
				}),
			},
		},
		controlCharPath: {
			gattChrcIface: a.control.properties(),
		},
		statusCharPath: {
			gattChrcIface: a.status.properties(),
		},
	}
	return objects, nil
}
