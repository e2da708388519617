package services

import (
	"fmt"
	"math"
	"route-optimizer-service/internal/domain"
	"strconv"
	"strings"
	"time"

	"github.com/zeebo/xxh3"
)

// Fingerprint identifies an optimization request for result caching.
//
// Stop order is part of the key because it decides ties. The request should carry
// a resolved StartAt; a nil StartAt hashes as "now" and is never a useful cache key.
// profile names the distance model and sequencer settings that produced the result.
// Coordinates and times are hashed at full precision so only identical requests share a key.
func Fingerprint(req OptimizeRequest, profile string) string {
	var b strings.Builder

	b.WriteString(profile)
	b.WriteByte('|')
	writeCoordinates(&b, req.Depot)
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(req.VehicleCount))
	b.WriteByte('|')
	b.WriteString(strconv.FormatBool(req.ReturnToDepot))
	b.WriteByte('|')
	if req.StartAt != nil {
		b.WriteString(req.StartAt.UTC().Format(time.RFC3339Nano))
	} else {
		b.WriteString("now")
	}

	for _, s := range req.Stops {
		b.WriteString("|")
		b.WriteString(strconv.Quote(s.ID))
		b.WriteByte('@')
		writeCoordinates(&b, s.Location)
		if w := s.Window; w != nil {
			fmt.Fprintf(&b, "[%d,%d]", unixNanoOrZero(w.Open), unixNanoOrZero(w.Close))
		}
		if s.ServiceDuration != nil {
			fmt.Fprintf(&b, "+%d", int64(*s.ServiceDuration))
		}
	}

	return fmt.Sprintf("%016x", xxh3.HashString(b.String()))
}

func writeCoordinates(b *strings.Builder, c domain.Coordinates) {
	fmt.Fprintf(b, "%016x,%016x", math.Float64bits(c.Lat), math.Float64bits(c.Lon))
}

func unixNanoOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}
