// Package driveops provides the high-level, typed API over one SharePoint
// document library: reading and writing JSON, tabular and SWC documents,
// local file transfer, directory listing, and the safe cross-folder move.
//
// A SessionProvider turns a configured site name into a Session. The
// Session composes a graph.Client (remote calls), the formats codecs, and a
// mover.Mover (safe move), and optionally records move outcomes in a
// journal.
package driveops
