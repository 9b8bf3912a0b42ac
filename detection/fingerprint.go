package detection

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/minio/highwayhash"
)

const (
	// DefaultAdviseSize is the default expected number of elements.
	DefaultAdviseSize = 75000

	// DefaultErrorRate is the default target error rate.
	// Range 0.0 - 1.0, default value is 1%.
	DefaultErrorRate = 0.01

	// record fingerprints join fields with an unlikely byte
	fingerprintSep = "\x1f"
)

// fingerprintKey is the fixed highwayhash key state for Fingerprint.
// Reproducibility matters here, not secrecy.
var fingerprintKey = make([]byte, 32)

// Fingerprint returns a 64-bit hash of a record's values in order.
// Two records with the same values in the same order always collide,
// regardless of which syntax they were parsed from.
func Fingerprint(values []string) uint64 {
	buf := &bytes.Buffer{}
	for i, v := range values {
		if i > 0 {
			buf.WriteString(fingerprintSep)
		}
		buf.WriteString(v)
	}
	return highwayhash.Sum64(buf.Bytes(), fingerprintKey)
}

// Set is a probabilistic data structure that can represent set
// membership, such that one can be fully certain an item is NOT in the
// set, and have a reasonably bounded idea whether an item may be in the
// set. N.B. in order to have confidence in error bounds, the Advise
// size estimate should be greater than the number of elements added.
//
// e.g. the question "is X in the set?" has answers "no" and "maybe"
type Set struct {
	advised  int64
	estError float64

	nadded uint64
	keys   uint64
	size   uint64

	parts []uint64

	h0State []byte
	h1State []byte
}

func (b *Set) resize() {
	if b.nadded != 0 {
		panic("cannot resize Set after elements have been added")
	}
	m, k := estimateSetParams(uint64(b.advised), b.estError)
	if k < 1 {
		k = 1
	}
	b.size, b.keys = uint64(m), uint64(k)
	b.parts = make([]uint64, 1+(b.size/64))
}

// Advise the Set on the estimated size of the data set.
func (b *Set) Advise(size int) {
	b.advised = int64(size)
	if b.estError <= 0.0 {
		b.estError = DefaultErrorRate
	}
	b.resize()
}

// ErrorRate sets the desired error rate for the Set.
func (b *Set) ErrorRate(rate float64) {
	b.estError = rate
	if b.advised <= 0 {
		b.advised = DefaultAdviseSize
	}
	b.resize()
}

// Learn a positive value in the data set.
func (b *Set) Learn(value string) {
	if b.keys == 0 {
		b.resize()
	}
	h0, h1 := b.hash(value)
	hx := h0 % b.size
	for k := uint64(0); k < b.keys; k++ {
		b.parts[hx/64] |= 1 << (hx % 64)
		hx = (hx + h1) % b.size
	}
	b.nadded++
}

// Detect predicts the value's inclusion in the data set.
// It returns true/false for the prediction, along with a confidence
// score from 0.0-1.0.  A score of 0.0 means most likely not in the
// set, and a score of 1.0 means most likely in the set.
func (b *Set) Detect(value string) (bool, float64) {
	h0, h1 := b.hash(value)
	hx := h0 % b.size
	for k := uint64(0); k < b.keys; k++ {
		if (b.parts[hx/64] & (1 << (hx % 64))) == 0 {
			return false, 0.0
		}
		hx = (hx + h1) % b.size
	}
	return true, 1.0 - b.estimateError()
}

// LearnRecord adds a record's fingerprint to the set.
func (b *Set) LearnRecord(values []string) {
	b.Learn(fmt.Sprintf("%016x", Fingerprint(values)))
}

// SeenRecord predicts whether an identical record was learned before.
func (b *Set) SeenRecord(values []string) bool {
	yes, _ := b.Detect(fmt.Sprintf("%016x", Fingerprint(values)))
	return yes
}

// Count returns the number of items added to the set (if known)
func (b *Set) Count() uint64 {
	return b.nadded
}

// Pack the set into serializable bytes.
func (b *Set) Pack() []byte {
	buf := &bytes.Buffer{}
	gw, _ := gzip.NewWriterLevel(buf, gzip.BestCompression)
	binary.Write(gw, binary.LittleEndian, []uint64{b.size, b.keys, b.nadded})
	binary.Write(gw, binary.LittleEndian, b.parts)
	gw.Close()
	return buf.Bytes()
}

// Unpack the set from serialized bytes.
func (b *Set) Unpack(rawbytes []byte) error {
	tmp := [3]uint64{0, 0, 0}
	gr, err := gzip.NewReader(bytes.NewReader(rawbytes))
	if err != nil {
		return err
	}
	err = binary.Read(gr, binary.LittleEndian, &tmp)
	if err != nil {
		return err
	}
	b.advised = 0
	b.estError = 0.0
	b.size = tmp[0]
	b.keys = tmp[1]
	b.nadded = tmp[2]

	b.parts = make([]uint64, 1+(b.size/64))

	// force reload on next hash
	b.h0State = b.h0State[:0]
	b.h1State = b.h1State[:0]

	return binary.Read(gr, binary.LittleEndian, b.parts)
}

func (b *Set) String() string {
	return fmt.Sprintf("set(m=%d, k=%d, n=%d) estimated error rate %3.3f%%",
		b.size, b.keys, b.nadded, b.estimateError()*100.0)
}

// mf = n*log(errRate)/(-ln 2)^2
func estimateSetParams(n uint64, errRate float64) (m, k int) {
	div := 1.0 / (-math.Ln2 * math.Ln2)
	mf := float64(n) * math.Log(errRate) * div
	kf := math.Ln2 * mf / float64(n)
	return int(mf), int(kf)
}

// b=bits per element
// (1.0 - e^(-k/b))^k
func (b *Set) estimateError() float64 {
	return math.Pow(1.0-math.Exp(-float64(b.keys*b.nadded)/float64(b.size)), float64(b.keys))
}

func (b *Set) hash(value string) (uint64, uint64) {
	if len(b.h0State) == 0 {
		b.h0State = make([]byte, 32)
		b.h1State = make([]byte, 32)
		// we care about reproducability, not uniqueness...
		binary.LittleEndian.PutUint64(b.h0State, b.size)
		binary.LittleEndian.PutUint64(b.h1State, b.keys)
	}

	h0 := highwayhash.Sum64([]byte(value), b.h0State)
	h1 := highwayhash.Sum64([]byte(value), b.h1State)
	return h0, h1
}
