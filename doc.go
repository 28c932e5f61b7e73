/*
Package kvrel implements tables, records and object associations on top of a
flat key-value store with string keys and string values (in-memory, Bolt,
Redis or PostgreSQL).

We implement:

1. Tables of records. A record is an ordered set of named fields holding
integers or text, identified by a positive integer id.

2. Autoincrement ids, one counter per table.

3. Selectors: all records, by id, by a list of ids, or by a predicate.

4. Models and associations (hasOne, one-to-many and many-to-many hasMany),
resolved recursively by ORM.Load with a per-call cycle guard.

# Technical Details

**Keys.**
Every field of every record is a separate key:

	<database>_<table>_<id>_<field>

The table counter lives at <database>_<table>_id and holds the next id to
assign. Names must not contain the separator. Keys under a table prefix that
do not parse as <id>_<field> are ignored.

**Counter.**
The counter never decreases. Inserting a record with an explicit id moves the
counter past that id; Drop removes the counter together with the rows, so ids
restart at 1.

**Values.**
Stores hold strings only. The id field reads back as an integer; every other
field reads back as text.

**Concurrency.**
A DB serializes its writers. Two DB handles over one store are not
coordinated.

**Snapshots.**
Export writes all keys of a database namespace as msgpack (or JSON) with an
xxhash checksum; Import verifies the checksum before writing anything.
*/
package kvrel
