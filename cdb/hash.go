package cdb

const (
	hashSeed    = 5381
	nBuckets    = 256
	headerWidth = 8 // (pos, slots)
	slotWidth   = 8 // (hash, pos)
	headerSize  = nBuckets * headerWidth
	recordHead  = 8 // (keyLen, valLen)
)

// Hash is the cdb hash of key: h = 5381, then h = (h*33) ^ c for every byte.
// The low 8 bits select a bucket, the remaining bits the starting slot within
// the bucket's table.
func Hash(key []byte) uint32 {
	h := uint32(hashSeed)
	for _, c := range key {
		h = (h + (h << 5)) ^ uint32(c)
	}
	return h
}
