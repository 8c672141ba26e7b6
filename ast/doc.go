// Package ast implements the SQL AST and renderer: a recursive
// node tree compiled once from a mapping file and rendered, against a fresh
// evaluation scope, on every statement invocation.
//
// Unlike a text-substitution implementation, Variable nodes resolve their
// property path directly against the render's evaluation scope (package
// eval) rather than against a flat, request-global parameter map. This
// makes ForEach's per-iteration scoping a plain
// Context.Push/Bind instead of a textual rewrite of `#{item...}` into
// synthetic `#{__frch_item_N...}` names: nested loops over the same item
// name never collide because each iteration's bindings live in their own
// scope, shadowing the parent's.
package ast
