// Package migrate moves ownership of a contiguous key range from one node to
// another. Keys are copied at least once and never lost; the task can be
// stopped at any call boundary and resumed after a crash.
//
// A Migrator talks to both nodes through a Requester (normally a blocking
// *link.Link) and keeps its own state in a metadata db.KVDB:
//
//	\xffrange/<node>          range owned by node, JSON
//	\xffmigrate/<src>/<dst>   checkpoint: last key the destination confirmed
//	\xfflock/<node>           lease, one migration per node at a time
//
// Moving:
//
//	MoveSome scans the source with sync_scan, starting AT the checkpoint key,
//	and for every key
//
//	  1. copies it to the destination with sync_set (set-if-newer by version)
//	  2. writes the checkpoint with a synced metadata batch
//	  3. deletes it on the source
//
//	A crash between 2 and 3 leaves the key on both nodes. The resumed task
//	sees it again, the copy is a stale no-op and the delete completes.
//	A batch holds at most BatchKeys keys and ends early once BatchBytes of
//	key+value data were moved. MoveSome returns the bytes moved, 0 when no
//	key is left, or an error marked ErrMigrationStep.
//
// Finishing:
//
//	Finish checks that the source holds no key of the moved interval, pushes
//	the new ranges to both nodes with set_kv_range and then records both
//	ranges and drops the checkpoint in one atomic metadata batch. Ranges only
//	change here, so until Finish the source owns the whole original range no
//	matter how many keys were copied. A finished task is recognised from the
//	metadata; Finish and MoveSome on it are no-ops.
//
// Usage Example:
//
//	m, err := migrate.New(migrate.Config{
//	    Source: migrate.Node{Name: "node-a", Link: srcLink},
//	    Dest:   migrate.Node{Name: "node-b", Link: dstLink, Range: migrate.EmptyRange},
//	    Move:   migrate.KeyRange{Min: "m"},
//	    Meta:   metaDB,
//	})
//	if err != nil {
//	    return err
//	}
//	defer m.Close()
//	return migrate.Run(ctx, m, migrate.DefaultRunOptions())
package migrate
