// Package frame provides the tabular data model shared by the label
// harmonization and data loading components: typed columns, missing values,
// interval cells, categorical interning, and positional or column-backed
// row indexes.
package frame
