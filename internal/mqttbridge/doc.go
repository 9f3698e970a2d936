// Package mqttbridge mirrors gateway state to an MQTT broker and accepts
// commands from it.
//
// Topic layout under a configurable prefix (default "norman"):
//
//	<prefix>/status               online | offline (retained, last will)
//	<prefix>/gateway/state        gateway health JSON
//	<prefix>/window/<id>/state    window JSON
//	<prefix>/room/<id>/state      room JSON
//	<prefix>/window/<id>/set      OPEN | CLOSE | 0-100
//	<prefix>/room/<id>/set        OPEN | CLOSE | 0-100 | PRESET <name>
package mqttbridge
