// Package normalize turns a decoded payload into a flat, ordered table.
//
// Every record becomes one row. Nested objects are flattened into dotted
// column names ("address.geo.lat"), nested arrays are kept as a compact JSON
// string in a single cell, and every row gets a "data_coleta" column holding
// the collection timestamp of the run. Columns appear in first-seen order
// with the timestamp column last.
package normalize
