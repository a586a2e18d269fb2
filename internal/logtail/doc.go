// Package logtail reads the tail of the application log file for the Log
// page and splits its lines into timestamp, level, message and fields.
//
// Read keeps a ring buffer of the last maxLines lines, so memory stays
// bounded however large the file grows. A missing file reads as empty.
//
// Parse understands the text format of the application logger:
//
//	2026-10-17 14:32:15 INFO source imported book=100 gramps_id=S0000
//
// Lines in any other shape, such as wrapped continuation lines, are
// returned whole as the message.
package logtail
