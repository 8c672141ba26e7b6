// Package keygen implements the Key Generator strategies a Compiled
// Statement's Insert may declare: Jdbc3Generator reads the
// driver's auto-increment result back through database/sql, and
// SelectKeyGenerator runs a separate compiled sub-query before or after the
// insert to populate the key property. Both satisfy registry.KeyGenerator
// structurally, without importing package registry.
package keygen
