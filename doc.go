// Package lake turns a raw data lake of JSON files into analytics tables
// stored as partitioned Parquet. It contains a small in-process dataframe
// engine and the interfaces that connect it to storage, and sub-packages
// implement each stage against concrete systems.
//
// A job moves through four stages.
//
// A lake.Storage is a root location such as a local directory or an S3
// bucket prefix. Opening a pattern against it yields a lake.RawSource, which
// hands out the matched files one at a time and may be drained from several
// goroutines at once. Storage is also a lake.Sink, which is where output
// tables end up.
//
// A lake.Decoder turns the bytes of one file into a lake.Source of records.
// The json package decodes newline separated (or concatenated) JSON objects,
// keeping numbers exact so that integers survive.
//
// Session.Read collects every record into a lake.Frame, inferring a schema
// from the union of keys seen. Frames are immutable and partitioned, one
// partition per input file, and support the relational operations a table
// build needs: select with renames and derived columns, filter, distinct,
// inner join and unique ids.
//
// Finally a lake.TableWriter persists a Frame at a path in a Sink. The
// parquet package writes Hive-style partition directories of Parquet files
// and a _SUCCESS marker once the table is complete.
package lake
