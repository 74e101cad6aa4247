package ledger

// Account layouts of the membership program. Offsets include the 8-byte discriminator.
var (
	CreatorConfigSchema = NewSchema("CreatorSubscriptionConfig", 2,
		Field{Name: "owner", Offset: 8, Kind: KindPublicKey},
		Field{Name: "legacy_price", Offset: 40, Kind: KindU64},
		Field{Name: "monthly_price", Offset: 48, Kind: KindU64},
		Field{Name: "active", Offset: 56, Kind: KindBool},
	)

	PlatformConfigSchema = NewSchema("EcosystemSubscriptionConfig", 1,
		Field{Name: "price", Offset: 8, Kind: KindU64},
		Field{Name: "active", Offset: 16, Kind: KindBool},
		Field{Name: "authority", Offset: 17, Kind: KindPublicKey},
	)

	PlatformSubscriptionSchema = NewSchema("EcosystemSubscription", 1,
		Field{Name: "subscriber", Offset: 8, Kind: KindPublicKey},
		Field{Name: "stream", Offset: 40, Kind: KindPublicKey},
		Field{Name: "started_at", Offset: 72, Kind: KindI64},
		Field{Name: "active", Offset: 80, Kind: KindBool},
	)

	CreatorSubscriptionSchema = NewSchema("CreatorSubscription", 1,
		Field{Name: "subscriber", Offset: 8, Kind: KindPublicKey},
		Field{Name: "creator", Offset: 40, Kind: KindPublicKey},
		Field{Name: "stream", Offset: 72, Kind: KindPublicKey},
		Field{Name: "started_at", Offset: 104, Kind: KindI64},
		Field{Name: "active", Offset: 112, Kind: KindBool},
		Field{Name: "billing_period", Offset: 113, Kind: KindU8},
	)

	GlobalConfigSchema = NewSchema("GlobalConfig", 1,
		Field{Name: "admin", Offset: 8, Kind: KindPublicKey},
		Field{Name: "treasury", Offset: 40, Kind: KindPublicKey},
	)
)

// CreatorConfig is a creator's membership configuration.
type CreatorConfig struct {
	Owner        PublicKey `json:"owner" yaml:"owner"`
	LegacyPrice  uint64    `json:"legacy_price" yaml:"legacy_price"` // deprecated, read only for old accounts
	MonthlyPrice uint64    `json:"monthly_price" yaml:"monthly_price"`
	Active       bool      `json:"active" yaml:"active"`
}

// Price returns the effective monthly price, falling back to the legacy field
// for accounts created before monthly_price existed.
func (c CreatorConfig) Price() uint64 {
	if c.MonthlyPrice == 0 {
		return c.LegacyPrice
	}
	return c.MonthlyPrice
}

func DecodeCreatorConfig(data []byte) (*CreatorConfig, error) {
	row, err := CreatorConfigSchema.Decode(data)
	if err != nil {
		return nil, err
	}
	return &CreatorConfig{
		Owner:        row.PublicKey("owner"),
		LegacyPrice:  row.U64("legacy_price"),
		MonthlyPrice: row.U64("monthly_price"),
		Active:       row.Bool("active"),
	}, nil
}

func (c CreatorConfig) Encode() []byte {
	return CreatorConfigSchema.New().
		SetPublicKey("owner", c.Owner).
		SetU64("legacy_price", c.LegacyPrice).
		SetU64("monthly_price", c.MonthlyPrice).
		SetBool("active", c.Active).
		Bytes()
}

// PlatformConfig is the single platform-wide membership configuration.
type PlatformConfig struct {
	Price     uint64    `json:"price" yaml:"price"`
	Active    bool      `json:"active" yaml:"active"`
	Authority PublicKey `json:"authority" yaml:"authority"`
}

func DecodePlatformConfig(data []byte) (*PlatformConfig, error) {
	row, err := PlatformConfigSchema.Decode(data)
	if err != nil {
		return nil, err
	}
	return &PlatformConfig{
		Price:     row.U64("price"),
		Active:    row.Bool("active"),
		Authority: row.PublicKey("authority"),
	}, nil
}

func (c PlatformConfig) Encode() []byte {
	return PlatformConfigSchema.New().
		SetU64("price", c.Price).
		SetBool("active", c.Active).
		SetPublicKey("authority", c.Authority).
		Bytes()
}

// PlatformSubscription records one subscriber's platform membership.
type PlatformSubscription struct {
	Subscriber PublicKey `json:"subscriber" yaml:"subscriber"`
	Stream     PublicKey `json:"stream" yaml:"stream"`
	StartedAt  int64     `json:"started_at" yaml:"started_at"`
	Active     bool      `json:"active" yaml:"active"`
}

func DecodePlatformSubscription(data []byte) (*PlatformSubscription, error) {
	row, err := PlatformSubscriptionSchema.Decode(data)
	if err != nil {
		return nil, err
	}
	return &PlatformSubscription{
		Subscriber: row.PublicKey("subscriber"),
		Stream:     row.PublicKey("stream"),
		StartedAt:  row.I64("started_at"),
		Active:     row.Bool("active"),
	}, nil
}

func (s PlatformSubscription) Encode() []byte {
	return PlatformSubscriptionSchema.New().
		SetPublicKey("subscriber", s.Subscriber).
		SetPublicKey("stream", s.Stream).
		SetI64("started_at", s.StartedAt).
		SetBool("active", s.Active).
		Bytes()
}

// CreatorSubscription records one subscriber's membership with one creator.
type CreatorSubscription struct {
	Subscriber    PublicKey `json:"subscriber" yaml:"subscriber"`
	Creator       PublicKey `json:"creator" yaml:"creator"`
	Stream        PublicKey `json:"stream" yaml:"stream"`
	StartedAt     int64     `json:"started_at" yaml:"started_at"`
	Active        bool      `json:"active" yaml:"active"`
	BillingPeriod uint8     `json:"billing_period" yaml:"billing_period"`
}

func DecodeCreatorSubscription(data []byte) (*CreatorSubscription, error) {
	row, err := CreatorSubscriptionSchema.Decode(data)
	if err != nil {
		return nil, err
	}
	return &CreatorSubscription{
		Subscriber:    row.PublicKey("subscriber"),
		Creator:       row.PublicKey("creator"),
		Stream:        row.PublicKey("stream"),
		StartedAt:     row.I64("started_at"),
		Active:        row.Bool("active"),
		BillingPeriod: row.U8("billing_period"),
	}, nil
}

func (s CreatorSubscription) Encode() []byte {
	return CreatorSubscriptionSchema.New().
		SetPublicKey("subscriber", s.Subscriber).
		SetPublicKey("creator", s.Creator).
		SetPublicKey("stream", s.Stream).
		SetI64("started_at", s.StartedAt).
		SetBool("active", s.Active).
		SetU8("billing_period", s.BillingPeriod).
		Bytes()
}

// GlobalConfig holds platform-level administration and fee routing identities.
type GlobalConfig struct {
	Admin    PublicKey `json:"admin" yaml:"admin"`
	Treasury PublicKey `json:"treasury" yaml:"treasury"`
}

func DecodeGlobalConfig(data []byte) (*GlobalConfig, error) {
	row, err := GlobalConfigSchema.Decode(data)
	if err != nil {
		return nil, err
	}
	return &GlobalConfig{
		Admin:    row.PublicKey("admin"),
		Treasury: row.PublicKey("treasury"),
	}, nil
}

func (c GlobalConfig) Encode() []byte {
	return GlobalConfigSchema.New().
		SetPublicKey("admin", c.Admin).
		SetPublicKey("treasury", c.Treasury).
		Bytes()
}
