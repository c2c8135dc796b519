package mq

import (
	flatbuffers "github.com/google/flatbuffers/go"
)

// QuoteMetric is one priced line, emitted for the analytics pipeline.
type QuoteMetric struct {
	QuoteID   string
	Sku       string
	ClientID  int32
	BasePrice float64
	MCDPrice  float64
	RCDPrice  float64
	Discount  float64
	Timestamp int64
}

// Field slots of the QuoteMetric table. Append only; consumers rely on them.
const (
	slotQuoteID = iota
	slotSku
	slotClientID
	slotBasePrice
	slotMCDPrice
	slotRCDPrice
	slotDiscount
	slotTimestamp
	numSlots
)

// EncodeQuoteMetric serializes m as a flatbuffers table.
func EncodeQuoteMetric(m QuoteMetric) []byte {
	builder := flatbuffers.NewBuilder(256)

	qID := builder.CreateString(m.QuoteID)
	sku := builder.CreateString(m.Sku)

	builder.StartObject(numSlots)
	builder.PrependInt64Slot(slotTimestamp, m.Timestamp, 0)
	builder.PrependFloat64Slot(slotDiscount, m.Discount, 0)
	builder.PrependFloat64Slot(slotRCDPrice, m.RCDPrice, 0)
	builder.PrependFloat64Slot(slotMCDPrice, m.MCDPrice, 0)
	builder.PrependFloat64Slot(slotBasePrice, m.BasePrice, 0)
	builder.PrependInt32Slot(slotClientID, m.ClientID, 0)
	builder.PrependUOffsetTSlot(slotSku, sku, 0)
	builder.PrependUOffsetTSlot(slotQuoteID, qID, 0)
	metric := builder.EndObject()

	builder.Finish(metric)
	return builder.FinishedBytes()
}

// DecodeQuoteMetric reads a buffer produced by EncodeQuoteMetric.
func DecodeQuoteMetric(buf []byte) QuoteMetric {
	t := flatbuffers.Table{Bytes: buf, Pos: flatbuffers.GetUOffsetT(buf)}

	field := func(slot int) flatbuffers.UOffsetT {
		o := flatbuffers.UOffsetT(t.Offset(flatbuffers.VOffsetT(4 + 2*slot)))
		if o == 0 {
			return 0
		}
		return o + t.Pos
	}
	str := func(slot int) string {
		if o := field(slot); o != 0 {
			return string(t.ByteVector(o))
		}
		return ""
	}
	f64 := func(slot int) float64 {
		if o := field(slot); o != 0 {
			return t.GetFloat64(o)
		}
		return 0
	}

	var m QuoteMetric
	m.QuoteID = str(slotQuoteID)
	m.Sku = str(slotSku)
	if o := field(slotClientID); o != 0 {
		m.ClientID = t.GetInt32(o)
	}
	m.BasePrice = f64(slotBasePrice)
	m.MCDPrice = f64(slotMCDPrice)
	m.RCDPrice = f64(slotRCDPrice)
	m.Discount = f64(slotDiscount)
	if o := field(slotTimestamp); o != 0 {
		m.Timestamp = t.GetInt64(o)
	}
	return m
}
