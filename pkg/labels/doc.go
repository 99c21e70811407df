// Package labels harmonizes code vocabularies across statistical data
// sources. A LabelMap binds a canonical code to its alternate labelings
// (agency codes, human-readable names, hierarchy metadata) and translates
// values or table labels between those axes. A LabelfileManager is a
// read-only registry over a fixed set of vocabulary definition files.
package labels
