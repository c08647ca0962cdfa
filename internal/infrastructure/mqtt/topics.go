package mqtt

// DefaultTopicPrefix is used when no prefix is configured.
const DefaultTopicPrefix = "solarpoller"

// Topics builds the poller's MQTT topics under a common prefix.
//
//	topics := mqtt.Topics{Prefix: "home/solar"}
//	topics.InverterPower() // "home/solar/inverter/power"
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultTopicPrefix
	}
	return t.Prefix
}

// InverterPower returns the retained topic carrying the latest reading.
//
// Example: solarpoller/inverter/power
func (t Topics) InverterPower() string {
	return t.prefix() + "/inverter/power"
}

// SystemStatus returns the topic for online/offline status and the LWT.
//
// Example: solarpoller/system/status
func (t Topics) SystemStatus() string {
	return t.prefix() + "/system/status"
}

// AllTopics returns a wildcard matching every poller topic.
//
// Example: solarpoller/#
func (t Topics) AllTopics() string {
	return t.prefix() + "/#"
}
