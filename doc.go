/*
Package ddns keeps a single DNS record in sync with the address of the host running it.

Usage will always start with [ddns.New],
which returns a [Client] bound to one zone.
New requires the zone name and a [Provider] implementation for a DNS provider,
normally registered with [UsingCloudflare].

Each call to [Client.Update] resolves the address to publish
(from explicit content or a [Resolver]),
checks it against the record type,
and then creates the record, edits it, or leaves it alone.
[Client.List] and [WriteRecordTable] report what the zone currently holds.
*/
package ddns
