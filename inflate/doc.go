// Package inflate implements a streaming decompressor for the DEFLATE
// compressed data format described in RFC 1951, together with the zlib
// (RFC 1950) and gzip (RFC 1952) container formats.
//
// Unlike compress/flate, an Inflater never blocks on an io.Reader.
// Callers feed it arbitrarily sized chunks of compressed bytes through
// Decompress and get back exactly the decompressed bytes produced from
// that chunk. Chunk boundaries need not line up with block, byte, or bit
// boundaries of the compressed format — an Inflater can be fed one byte
// at a time and will produce byte-identical output to feeding it the
// whole stream in one call.
package inflate
