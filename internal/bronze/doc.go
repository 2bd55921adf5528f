// Package bronze loads raw CSV files into the bronze layer.
//
// Every file becomes a table named after the file, with its values kept as
// text and two lineage columns: the file it came from and the time of the
// load.
package bronze
