// Package command implements the step vocabulary of a scenario as typed
// commands over the record store.
//
// Every command is a value implementing Command[R]; Execute is the single
// entry point. The Processor stamps each execution with a logical sequence
// number, logs it and wraps it in a tracing span. Commands never swallow
// errors: conversion, alias, store and assertion failures are returned to the
// caller unchanged apart from contextual wrapping.
//
// A Context carries the per-scenario state shared by commands: the alias
// table, the converter bound to it, the record store and the form verifier.
// Contexts must not be shared between concurrently running scenarios.
package command
