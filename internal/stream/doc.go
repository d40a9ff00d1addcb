// Package stream consumes the Kafka topic under test and turns every
// retained message into a decoded, flattened actual event.
//
// Consumption is a time-windowed poll loop: it starts at the moment the
// test mails were dispatched and ends when the configured timeout elapses.
// Partition-EOF signals and empty polls keep the loop alive; transport
// errors and payload decode errors end it.
package stream
