package bluetooth

import (
	"log"

	"github.com/godbus/dbus/v5"
)

// advertisement is the LEAdvertisement1 object BlueZ broadcasts while the
// daemon runs. The local name is the device ID so centrals can pick their
// unit out of a room of them.
type advertisement struct {
	localName string
}

func (a *advertisement) properties() map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"Type":         dbus.MakeVariant("peripheral"),
		"ServiceUUIDs": dbus.MakeVariant([]string{ServiceUUID}),
		"LocalName":    dbus.MakeVariant(a.localName),
		"Includes":     dbus.MakeVariant([]string{"tx-power"}),
	}
}

func (a *advertisement) GetAll(iface string) (map[string]dbus.Variant, *dbus.Error) {
	if iface != advIface {
		return map[string]dbus.Variant{}, nil
	}
	return a.properties(), nil
}

func (a *advertisement) Release() *dbus.Error {
	log.Printf("BLE: advertisement released by bluez")
	return nil
}
