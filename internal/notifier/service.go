package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/rifqiarief/cetak3d-backend/internal/kafka"
	"github.com/rifqiarief/cetak3d-backend/internal/orders"
	"github.com/rifqiarief/cetak3d-backend/internal/redisx"
)

// Service dengerin event pembayaran lalu kirim email ke customer.
// Engine cuma publish saat state beneran berubah + dedup event_id di sini,
// jadi email tidak dobel walau notifikasi gateway datang berkali-kali.
type Service struct {
	Redis  *redis.Client
	Mailer Mailer
	Log    *zap.Logger
}

// HandlePaymentEvent dipasang sebagai handler consumer untuk topic
// payment.settled dan payment.failed.
func (s *Service) HandlePaymentEvent(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventPaymentSettled && env.EventType != orders.EventPaymentFailed {
		return nil // ignore
	}

	// dedup via Redis (pakai event_id)
	dkey := fmt.Sprintf(redisx.KeyDedup, "notifier", env.EventID)
	exists, _ := redisx.Exists(ctx, s.Redis, dkey)
	if exists {
		return nil
	}

	p, err := kafkax.UnwrapPayload[orders.PaymentResultPayload](env.Payload)
	if err != nil {
		return err
	}
	if p.UserEmail == "" {
		s.Log.Warn("order tanpa email, skip notifikasi", zap.String("order_number", p.OrderNumber))
		return nil
	}

	subject, body := compose(env.EventType, p)
	if err := s.Mailer.Send(p.UserEmail, subject, body); err != nil {
		// jangan set dedup; biar dicoba lagi di delivery berikutnya
		return err
	}

	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	s.Log.Info("email notifikasi terkirim",
		zap.String("order_number", p.OrderNumber),
		zap.String("event", env.EventType))
	return nil
}

func compose(eventType string, p orders.PaymentResultPayload) (subject, body string) {
	switch eventType {
	case orders.EventPaymentSettled:
		subject = fmt.Sprintf("Pembayaran %s diterima", p.OrderNumber)
		body = fmt.Sprintf(
			"Halo,\n\nPembayaran sebesar Rp%d untuk order %s sudah kami terima.\n"+
				"Pesananmu sekarang sedang dicek admin sebelum masuk antrian cetak.\n\nTerima kasih!",
			p.Amount, p.OrderNumber)
	default:
		subject = fmt.Sprintf("Pembayaran %s gagal", p.OrderNumber)
		body = fmt.Sprintf(
			"Halo,\n\nPembayaran untuk order %s gagal atau kedaluwarsa dan pesanan dibatalkan.\n"+
				"Silakan buat order baru kalau masih ingin mencetak.\n\nTerima kasih.",
			p.OrderNumber)
	}
	return subject, body
}
