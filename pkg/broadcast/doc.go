// Package broadcast fans a single byte stream out to a changing set of listeners.
//
// A Registry tracks listeners by id. A Sink sits at the end of a pipeline and hands
// every chunk written to it to all listeners registered at that moment. Listeners
// that stop accepting writes are pruned from the registry during delivery.
package broadcast
