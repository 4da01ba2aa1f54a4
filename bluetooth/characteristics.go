package bluetooth

import (
	"log"
	"strings"

	"github.com/godbus/dbus/v5"

	"github.com/openglass/glassesd/status"
)

const statusSubscriberID = "ble-status"

// controlCharacteristic accepts command writes from the central and hands
// them to the dispatcher. It carries no state of its own.
type controlCharacteristic struct {
	dispatcher *Dispatcher
}

func (c *controlCharacteristic) properties() map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"Service":     dbus.MakeVariant(dbus.ObjectPath(servicePath)),
		"UUID":        dbus.MakeVariant(ControlCharUUID),
		"Flags":       dbus.MakeVariant([]string{"write", "write-without-response"}),
		"Descriptors": dbus.MakeVariant([]dbus.ObjectPath{}),
	}
}

func (c *controlCharacteristic) WriteValue(value []byte, options map[string]dbus.Variant) *dbus.Error {
	raw := strings.TrimSpace(string(value))
	if raw == "" {
		return nil
	}
	c.dispatcher.Dispatch(raw)
	return nil
}

// statusCharacteristic serves the current status payload. Reads honor the
// offset option so centrals with a small MTU can fetch long payloads in
// chunks, and notify subscriptions are bridged onto the shared publisher.
type statusCharacteristic struct {
	conn      *dbus.Conn
	publisher *status.Publisher
}

func (c *statusCharacteristic) properties() map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"Service":     dbus.MakeVariant(dbus.ObjectPath(servicePath)),
		"UUID":        dbus.MakeVariant(StatusCharUUID),
		"Flags":       dbus.MakeVariant([]string{"read", "notify"}),
		"Descriptors": dbus.MakeVariant([]dbus.ObjectPath{}),
	}
}

func (c *statusCharacteristic) ReadValue(options map[string]dbus.Variant) ([]byte, *dbus.Error) {
	offset := readOffset(options)
	chunk := c.publisher.ReadChunk(offset)
	log.Printf("BLE: status read offset=%d len=%d", offset, len(chunk))
	return chunk, nil
}

func (c *statusCharacteristic) StartNotify() *dbus.Error {
	c.publisher.Subscribe(statusSubscriberID, c.notify)
	log.Printf("BLE: status notifications enabled")
	return nil
}

func (c *statusCharacteristic) StopNotify() *dbus.Error {
	c.publisher.Unsubscribe(statusSubscriberID)
	log.Printf("BLE: status notifications disabled")
	return nil
}

func (c *statusCharacteristic) notify(payload string) error {
	return c.conn.Emit(
		dbus.ObjectPath(statusCharPath),
		dbusPropsIface+".PropertiesChanged",
		gattChrcIface,
		map[string]dbus.Variant{"Value": dbus.MakeVariant([]byte(payload))},
		[]string{},
	)
}

// readOffset extracts the offset option BlueZ passes on long reads. The
// value arrives as uint16 on real buses but tests and older stacks hand us
// other widths.
func readOffset(options map[string]dbus.Variant) int {
	v, ok := options["offset"]
	if !ok {
		return 0
	}
	switch o := v.Value().(type) {
	case uint16:
		return int(o)
	case uint32:
		return int(o)
	case uint64:
		return int(o)
	case int:
		return o
	case int32:
		return int(o)
	default:
		return 0
	}
}
