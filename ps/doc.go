// Package ps provides the persistence layer for TupleDB.
//
// Data lives in a Git repository managed with go-git: a schema file
// (schema.txt by default) declaring one table per line, and one CSV file per
// table named after it. Every write is a commit, so the full history of the
// data can be listed, tagged and restored.
//
//	Students(sid:Integer, name:String, gpa:Double)
//	Courses(cid:Integer, title:String)
//
// # Memory Persistence
//
// For testing or ephemeral databases:
//
//	persistence, err := ps.NewMemoryPersistence()
//
// # File Persistence
//
//	persistence, err := ps.NewFilePersistence("/path/to/data", ps.WithLogger(logger))
//
// Opening a plain directory that holds a schema file and CSV files but no
// repository imports them as the first commit.
//
// # History
//
//	log, _ := persistence.Log(10)
//	_ = persistence.Snapshot("before-cleanup", nil)
//	txn, _ := persistence.RestoreTo("before-cleanup", identity)
//
// # Remote Import
//
// ImportRemote copies the schema file and the data files from a local path or
// a file://, http(s):// or s3:// prefix in a single transaction.
package ps
