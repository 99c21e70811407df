// Package loader runs the locate, read, process pipeline that turns raw
// published data files into normalized tables. Concrete sources implement
// the two-operation Source interface; everything else, including the
// five-stage tabular processor, comes with the loader. Failures are
// classified (configuration, resolution, translation, io) and never
// retried.
package loader
