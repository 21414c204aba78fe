// Package events defines orchestrator lifecycle notifications and their
// in-memory delivery.
//
// The orchestrator publishes through the Bus interface only; it never knows
// who is listening. The Broadcaster is the default Bus: a fan-out hub where
// each subscriber gets a buffered channel and slow consumers lose events
// instead of stalling scheduling. NopBus serves embedders that do not care.
package events
