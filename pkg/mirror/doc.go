/*
The mirror package implements treemirror's synchronization engine. It keeps
two directory trees, the left and the right root, content-identical.

There are two ways the trees are brought back in sync:
1) The Router reacts to individual change notifications for either tree and
   replays them onto the opposite tree.
2) Reconcile walks both trees and repairs every difference it finds in a
   single blocking pass. When a file differs on both sides, the copy with the
   later modification time wins.

Because both trees are watched, every change the Router replicates comes back
as a notification from the other tree. Replicate compares the file contents
before writing anything, so the echoed notification is a no-op and the loop
stops after one extra round trip.

Reconcile never deletes. A file that only exists on one side is always
treated as missing from the other side. Deletions are only mirrored while the
Router is running.
*/
package mirror
