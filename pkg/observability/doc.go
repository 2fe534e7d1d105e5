/*
Package observability provides AnalyticsSink implementations: a structured
log sink, a Prometheus sink, and combinators for fanning events out to
several sinks at once.
*/
package observability
