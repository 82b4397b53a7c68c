// Package tables registers the TPC-H table schemas with the core registry.
// Import this package for its side effects to make the tables available.
package tables

// Each table file uses init() to register its schema. Column order follows
// the dbgen output, which is also the destination column order.
