package orders

import (
	"fmt"
	"math/rand"
	"regexp"
	"time"
)

// NewOrderNumber membuat nomor order human-readable: ORD-<unix>-<3 digit acak>.
// Nomor ini jadi identifier di sisi gateway juga, jadi harus unik & immutable;
// keunikan final tetap dijaga unique index di DB (caller retry kalau tabrakan).
func NewOrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%d-%03d", now.Unix(), rand.Intn(1000))
}

var orderNumberRe = regexp.MustCompile(`^ORD-\d+-\d{3}$`)

func ValidOrderNumber(s string) bool { return orderNumberRe.MatchString(s) }
