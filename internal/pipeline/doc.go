// Package pipeline hosts the two processing stages and a local topology
// that runs them.
//
// HillasStage turns a raw event into a per-telescope mapping of serialized
// Hillas moments. RecoStage fuses that mapping into one shower
// reconstruction. Each stage instance handles one tuple at a time and, for
// every input, emits exactly one tuple: on the default stream when it
// succeeds or on the errors stream when it does not.
//
// Topology runs N instances of each stage as goroutines and routes their
// output to observers and a Sink. Any streaming host that delivers tuples
// one at a time can drive the stages directly instead.
package pipeline
