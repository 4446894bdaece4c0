// Package stream provides the push-based runtime primitives that compiled
// pipelines are instantiated into.
//
// The model is the classic observer contract: an Observable delivers zero or
// more OnNext notifications followed by at most one terminal notification
// (OnError or OnCompleted). Subscribe returns a Disposable; disposing releases
// upstream resources without emitting a terminal notification.
//
// Sources may emit synchronously from inside Subscribe. Operators that share
// one upstream subscription between several consumers (Publish, subjects)
// therefore attach all downstream observers before connecting upstream.
//
// This package imports nothing internal. The fragment IR in package ir
// references it for the operator functions carried by fragment nodes.
package stream
