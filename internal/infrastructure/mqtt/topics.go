package mqtt

import "fmt"

// TopicPrefixSystem is the base for ParamCore system topics.
// Parameter topics are built relative to the configured registry prefix
// (see config.RegistryConfig.Prefix); only the system lifecycle topics
// are fixed here.
const TopicPrefixSystem = "paramcore/system"

// Topics provides builders for ParamCore MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	status := topics.ParamStatus("esplan/params", "heating/targetTemp")
//	// Returns: "esplan/params/status/heating/targetTemp"
type Topics struct{}

// SystemStatus returns the service status topic used for LWT and
// online/offline announcements.
//
// Example: paramcore/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// ParamSet returns the topic a peer publishes to when setting a parameter.
//
// Example: esplan/params/set/heating/targetTemp
func (Topics) ParamSet(prefix, name string) string {
	return fmt.Sprintf("%s/set/%s", prefix, name)
}

// ParamGet returns the topic a peer publishes to when requesting a parameter.
//
// Example: esplan/params/get/heating/targetTemp
func (Topics) ParamGet(prefix, name string) string {
	return fmt.Sprintf("%s/get/%s", prefix, name)
}

// ParamStatus returns the topic the registry publishes parameter state on.
//
// Example: esplan/params/status/heating/targetTemp
func (Topics) ParamStatus(prefix, name string) string {
	return fmt.Sprintf("%s/status/%s", prefix, name)
}

// ListRequest returns the topic a peer publishes to when requesting
// the full parameter name list.
//
// Example: esplan/params/list
func (Topics) ListRequest(prefix string) string {
	return fmt.Sprintf("%s/list", prefix)
}

// ListResponse returns the topic the registry publishes the name list on.
//
// Example: esplan/params/list/response
func (Topics) ListResponse(prefix string) string {
	return fmt.Sprintf("%s/list/response", prefix)
}

// SaveRequest returns the topic a peer publishes to when requesting
// a save of all parameters.
//
// Example: esplan/params/save
func (Topics) SaveRequest(prefix string) string {
	return fmt.Sprintf("%s/save", prefix)
}

// CommandFilters returns the subscription patterns covering every inbound
// command for a registry prefix. Subscribing to these rather than
// "<prefix>/#" keeps the registry from receiving its own status publishes.
//
// Patterns: esplan/params/set/#, .../get/#, .../list, .../save
func (Topics) CommandFilters(prefix string) []string {
	return []string{
		fmt.Sprintf("%s/set/#", prefix),
		fmt.Sprintf("%s/get/#", prefix),
		fmt.Sprintf("%s/list", prefix),
		fmt.Sprintf("%s/save", prefix),
	}
}
