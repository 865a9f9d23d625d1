// Package mqtt provides MQTT client connectivity for the Gray Logic HMI.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) on the machine's status topic
//
// # Architecture
//
// The HMI publishes the machine's observable state to a per-machine topic
// tree and accepts remote PLC writes on its command topics:
//
//	PLC ↔ HMI ↔ MQTT Broker ↔ SCADA / MES / dashboards
//
// Topic building lives in Topics; the domain-to-payload mapping lives in
// the relay package.
//
// # Security Considerations
//
//   - TLS should be enabled for anything beyond a local broker (cfg.Broker.TLS=true)
//   - Command topics write to the PLC; restrict them with broker ACLs
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, cfg.Machine.ID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.PublishJSON(client.Topics().AlarmActive(), map[string]int{"count": 3}, true)
package mqtt
