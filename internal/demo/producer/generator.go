package producer

import (
	"math"
	"math/rand"
	"strconv"
)

// UploadRecord is one medical triplet in the wire shape the upload endpoint
// accepts. Value is always sent as text.
type UploadRecord struct {
	MEDCode int64  `json:"MEDCode"`
	Slot    int64  `json:"Slot"`
	Value   string `json:"Value"`
}

// vitalSign describes one measurement the generator can emit: the MEDCode it
// is filed under, the slot that holds its reading, and a plausible range.
type vitalSign struct {
	medCode   int64
	name      string
	slot      int64
	min       float64
	max       float64
	precision int
}

// The catalog mirrors the bundled seed dataset. MEDCode 1302 keeps its raw
// code in slot 150 and its name in slot 151, so readings live in slot 152;
// the other codes keep the name in slot 150 and the reading in slot 151.
var vitalCatalog = []vitalSign{
	{medCode: 1302, name: "Blood pressure systolic", slot: 152, min: 95, max: 165, precision: 0},
	{medCode: 1303, name: "Blood pressure diastolic", slot: 151, min: 55, max: 100, precision: 0},
	{medCode: 1304, name: "Heart rate", slot: 151, min: 48, max: 120, precision: 0},
	{medCode: 1305, name: "Temperature", slot: 151, min: 96.8, max: 102.4, precision: 1},
	{medCode: 1306, name: "Sodium level", slot: 151, min: 132, max: 148, precision: 0},
	{medCode: 1307, name: "Glucose", slot: 151, min: 68, max: 180, precision: 0},
}

type Generator struct {
	rnd *rand.Rand
}

func NewGenerator(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// NextBatch emits n readings.
func (g *Generator) NextBatch(n int) []UploadRecord {
	batch := make([]UploadRecord, 0, n)
	for range n {
		batch = append(batch, g.NextRecord())
	}
	return batch
}

// NextRecord emits one reading for a vital picked from the catalog. The
// sequence is fully determined by the seed.
func (g *Generator) NextRecord() UploadRecord {
	vital := vitalCatalog[g.rnd.Intn(len(vitalCatalog))]
	return UploadRecord{
		MEDCode: vital.medCode,
		Slot:    vital.slot,
		Value:   g.formatReading(vital),
	}
}

func (g *Generator) formatReading(vital vitalSign) string {
	reading := vital.min + g.rnd.Float64()*(vital.max-vital.min)
	if vital.precision == 0 {
		return strconv.FormatInt(int64(math.Round(reading)), 10)
	}
	return strconv.FormatFloat(roundTo(reading, vital.precision), 'f', vital.precision, 64)
}

func roundTo(value float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(value*factor) / factor
}
