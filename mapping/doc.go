// Package mapping implements the Result Map and Result-Set Mapper: the
// immutable result-map tree configuration objects, and the
// row-processing algorithm that turns a statement's rows into target
// objects — discriminator resolution, constructor mapping, auto-mapping,
// nested result maps with row-key identity, and nested sub-queries.
package mapping
