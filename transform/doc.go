// Package transform implements the two concrete processor kinds that
// plug into a ProducerConsumer stage: the tick-to-bar resampler state
// machine and the indicator adaptor. Both implement the same Processor
// contract so the stage runtime (package stage) can run either without
// knowing which one it has -- the dynamic-dispatch "module" of the
// original design becomes, in this statically typed form, a
// constructor closure handed to the topology builder plus a small
// interface the resulting value satisfies (see design note in
// DESIGN.md on dynamic dispatch over transform modules).
package transform
