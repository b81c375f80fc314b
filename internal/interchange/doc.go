// Package interchange encodes and decodes logbook datasets.
//
// # Formats
//
// Two encodings are supported.
//
// Structured (JSON) is a single object with sorted keys:
//
//	{
//	  "clients": [
//	    {"hourlyRate": "85.5", "id": "…", "name": "Acme", "tag": "retainer"}
//	  ],
//	  "entries": [
//	    {"amount": "0", "clientId": "…", "createdAt": "…", "date": "…",
//	     "description": "Ship v2", "id": "…", "isComplete": false,
//	     "tag": "", "type": "Task"}
//	  ],
//	  "exportedAt": "2026-10-17T09:30:00Z"
//	}
//
// Line-oriented (CSV) carries a preamble, a metadata line and two sections:
//
//	LogbookOne Data Export
//	Exported At,2026-10-17T09:30:00Z
//
//	CLIENTS
//	ID,Name,Tag,Hourly Rate
//	…
//
//	ENTRIES
//	ID,Type,Date,Description,Client ID,Is Complete,Amount,Tag
//	…
//
// Fields containing a comma, a double quote or a line break are quoted, with
// inner quotes doubled. Quoted fields may span lines.
//
// # Timestamps
//
// Every timestamp in both formats uses RFC 3339 in UTC at second precision.
// Decoding accepts any RFC 3339 offset and fractional seconds.
//
// # Leniency
//
// Hard failures are limited to an unrecognised preamble (types.ErrNotRecognizedFormat)
// and missing section anchors or a malformed structured document (types.ErrFormat).
// Field-level problems in line-oriented files (short rows, bad decimals, unknown
// type labels, unparseable ids) are recovered by skipping or defaulting and are
// reported in Decoded.Warnings.
package interchange
