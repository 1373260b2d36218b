// Package logx is a thin structured-logging layer over zerolog.
//
// It exists so services can hold a stable Logger value while the
// underlying sinks (console, file, telegram) are swapped at runtime
// via Service.Apply on config reload.
package logx
