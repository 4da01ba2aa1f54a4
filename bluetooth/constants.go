package bluetooth

const (
	bluezBusName     = "org.bluez"
	dbusOMIface      = "org.freedesktop.DBus.ObjectManager"
	dbusPropsIface   = "org.freedesktop.DBus.Properties"
	adapterIface     = "org.bluez.Adapter1"
	gattManagerIface = "org.bluez.GattManager1"
	gattServiceIface = "org.bluez.GattService1"
	gattChrcIface    = "org.bluez.GattCharacteristic1"
	advManagerIface  = "org.bluez.LEAdvertisingManager1"
	advIface         = "org.bluez.LEAdvertisement1"
)

// Fixed service identity shared with the paired mobile app.
const (
	ServiceUUID     = "12345678-1234-5678-1234-56789abcdef0"
	ControlCharUUID = "12345678-1234-5678-1234-56789abcdef1"
	StatusCharUUID  = "12345678-1234-5678-1234-56789abcdef2"
)

const (
	appPath         = "/org/glasses"
	servicePath     = appPath + "/service0"
	controlCharPath = servicePath + "/char0"
	statusCharPath  = servicePath + "/char1"
	advPath         = "/org/glasses/advertisement0"
)
