// Package amqppeer carries transfers through a RabbitMQ broker.
//
// Each node consumes a durable queue bound to a direct exchange under its own
// party name. The submitter publishes a JSON envelope holding the manifest
// and container with publisher confirms; a transfer counts as submitted once
// the broker has confirmed it. Deliveries the receiver refuses are rejected
// without requeue.
package amqppeer
