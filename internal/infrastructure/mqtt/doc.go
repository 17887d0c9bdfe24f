// Package mqtt provides MQTT client connectivity for ParamCore.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// ParamCore uses MQTT as the synchronization channel between the on-device
// parameter registry and remote peers (dashboards, provisioning tools,
// fleet controllers). The broker decouples the registry from its peers.
//
//	Parameter Registry ↔ MQTT Broker ↔ Remote Peers
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff with configurable bounds
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all inbound parameter commands
//	for _, filter := range (mqtt.Topics{}).CommandFilters("esplan/params") {
//	    err = client.Subscribe(filter, 1,
//	        func(topic string, payload []byte) error {
//	            registry.HandleCommand(topic, payload)
//	            return nil
//	        })
//	}
package mqtt
