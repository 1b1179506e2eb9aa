// Package mwha implements the multi-zone whole-house audio bridge for
// Gray Logic.
//
// This package drives Monoprice MPR-6ZHMAUT-family amplifier chains
// (and compatible units such as the Dayton Audio DAX66) over their
// RS-232 control protocol and mirrors every zone onto the MQTT bus.
//
// # Architecture
//
// The bridge sits between the message bus and the serial link:
//
//	┌─────────────────┐          ┌─────────────────┐   RS-232 /
//	│   Gray Logic    │   MQTT   │   WHA Bridge    │   ser2net
//	│      Core       │◄────────►│   (this pkg)    │◄──────────► Amplifiers
//	└─────────────────┘          └─────────────────┘
//
// A single worker goroutine owns all device traffic. Bus command
// handlers validate payloads and enqueue change requests; the worker
// drains the queue, coalesces repeated writes to the same zone
// attribute, applies them, then polls each amplifier and publishes
// whatever changed as retained bus state.
//
// # Key Responsibilities
//
//   - Frame and execute serial commands with echo verification
//   - Resynchronise a desynchronised link via marker commands
//   - Detect and renegotiate the serial baud rate
//   - Subscribe to per-attribute zone command topics
//   - Poll zone state and publish attribute changes
//   - Fan out amp-level and system-level commands
//
// # Addressing
//
// A chain carries up to three amplifier units with six zones each.
// Ids are two decimal digits, amp then zone; zero digits widen the
// scope:
//
//   - "00" addresses the whole chain
//   - "20" addresses every zone of amp 2
//   - "36" addresses zone 6 of amp 3
//
// Example:
//
//	id, err := mwha.ParseZoneID("36")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(id.OwningAmp()) // "30"
//
// # Thread Safety
//
// Bridge, Driver and the port types serialize device access through
// the bridge worker; their exported methods are safe for concurrent
// use unless noted otherwise on the method.
//
// # References
//
//   - Monoprice MPR-6ZHMAUT manual: https://www.monoprice.com/product?p_id=10761
//   - ser2net serial bridge: https://github.com/cminyard/ser2net
//   - Gray Logic WHA spec: docs/protocols/mwha.md
package mwha
