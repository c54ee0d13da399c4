// ABOUTME: Device plugin contract package
// ABOUTME: Provides Port and one concrete oto/v3 implementation
// Package backend defines the contract between the output worker and a
// device plugin (Port), plus Oto, a concrete implementation over oto/v3.
package backend
