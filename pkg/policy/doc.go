// Package policy provides Open Policy Agent (OPA) checks over dataset
// descriptors.
//
// Policies are written in Rego and evaluated against each descriptor's wire
// form. Built-in policies cover the house conventions (identifier-shaped
// IDs, relative raw paths, declared and canonical dimensions, default
// versions for versioned datasets); custom policies load from .rego or
// .json files and can be hot-reloaded on change.
//
// The engine runs in one of two modes: advisory, where violations are
// reported but never block, and enforcing, where error and critical
// violations make the result disallowed.
package policy
