// Package eventlog persists alarm and info transitions to daily CSV files.
//
// Layout:
//
//	{root}/{device}/{yyyy_MM_dd}.csv
//
//	id,type,content,station,time,activeFlag
//	1,Alarm,Door open,Loader,2026-03-01 08:15:02,true
//	1,Alarm,Door open,Loader,2026-03-01 08:16:40,false
//
// Files are UTF-8. A day's file is created on its first event with the
// header row. Every append opens the file, writes one line and closes it
// again so that external readers can open the file at any time. All
// appends in the process share one lock.
//
// The format does no quoting: a record whose fields contain a comma or a
// line break is rejected with ErrDelimiterInField.
//
// Reads are for display. They retry transient I/O errors with a linear
// backoff and then give up with an empty result instead of an error.
package eventlog
