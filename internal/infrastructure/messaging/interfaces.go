// Package messaging defines interfaces for real-time communication.
package messaging

import "github.com/siteguard/widget-go/internal/domain/entities/collector"

// Publisher fans ingested records out to live subscribers. Publish never blocks.
type Publisher interface {
	Publish(record collector.LiveRecord)
}

// NopPublisher discards records.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(collector.LiveRecord) {}
