package kafka

// Config общие настройки Kafka для сервисов.
// Локально (go run) брокер доступен на localhost:19092, в docker kafka:9092.
type Config struct {
	// Brokers список брокеров через запятую: "broker1:9092,broker2:9092"
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	// ClientID идентификатор клиента в логах брокера
	ClientID string `env:"KAFKA_CLIENT_ID" envDefault:"upkar-pharma"`
	// OrdersTopic события заказов (order.placed, order.status_changed)
	OrdersTopic string `env:"KAFKA_ORDERS_TOPIC" envDefault:"pharma.orders"`
	// PaymentsTopic события оплат (payment.recorded)
	PaymentsTopic string `env:"KAFKA_PAYMENTS_TOPIC" envDefault:"pharma.payments"`
	// DoctorsTopic события регистрации и модерации врачей
	DoctorsTopic string `env:"KAFKA_DOCTORS_TOPIC" envDefault:"pharma.doctors"`
	// DLQTopic сообщения, которые notification не смог обработать
	DLQTopic string `env:"KAFKA_NOTIFICATION_DLQ_TOPIC" envDefault:"pharma.notifications.dlq"`
}

// DefaultConfig значения для локальной разработки
func DefaultConfig() Config {
	return Config{
		Brokers:       []string{"localhost:19092"},
		ClientID:      "upkar-pharma",
		OrdersTopic:   "pharma.orders",
		PaymentsTopic: "pharma.payments",
		DoctorsTopic:  "pharma.doctors",
		DLQTopic:      "pharma.notifications.dlq",
	}
}

// Topics возвращает все доменные топики
func (c Config) Topics() []string {
	return []string{c.OrdersTopic, c.PaymentsTopic, c.DoctorsTopic}
}
