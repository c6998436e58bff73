// Package infra groups the adapters of the dispatch board: the snapshot
// codec, the backend REST client, the MQTT apply transport, the metrics
// sinks, Sentry monitoring and the zerolog logger. Adapters implement the
// interfaces declared under core/ and never import app/.
package infra
