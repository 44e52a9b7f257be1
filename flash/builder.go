package flash

// Builder can build flash devices. All parameters are validated in Build;
// an invalid combination fails construction, never first use.
type Builder struct {
	capacity       uint64
	readUnit       uint64
	writeUnit      uint64
	eraseUnit      uint64
	minEraseCycles uint64
	failureRate    uint64
	probabilistic  bool
	seed           int64
	logLevel       LogLevel
	logCapacity    int
	multiwrite     bool
	backingFile    string
}

// MakeBuilder returns a new Builder with the geometry of a common small
// NOR part: byte reads, 4-byte writes, 4 KiB erase units, wear disabled.
func MakeBuilder() Builder {
	return Builder{
		capacity:  64 * 1024,
		readUnit:  1,
		writeUnit: 4,
		eraseUnit: 4096,
		logLevel:  LogNone,
	}
}

// WithCapacity sets the device size in bytes.
func (b Builder) WithCapacity(capacity uint64) Builder {
	b.capacity = capacity
	return b
}

// WithReadUnit sets the read alignment in bytes.
func (b Builder) WithReadUnit(unit uint64) Builder {
	b.readUnit = unit
	return b
}

// WithWriteUnit sets the write alignment in bytes.
func (b Builder) WithWriteUnit(unit uint64) Builder {
	b.writeUnit = unit
	return b
}

// WithEraseUnit sets the erase unit (page) size in bytes.
func (b Builder) WithEraseUnit(unit uint64) Builder {
	b.eraseUnit = unit
	return b
}

// WithWearThreshold sets the number of erase cycles a page can take before
// it becomes eligible for stuck-bit failures. Zero disables wear.
func (b Builder) WithWearThreshold(cycles uint64) Builder {
	b.minEraseCycles = cycles
	return b
}

// WithFailureRate configures how frequently a stuck bit is injected past
// the wear threshold: one failure every rate erases in deterministic mode,
// or with probability 1/rate in probabilistic mode.
func (b Builder) WithFailureRate(rate uint64) Builder {
	b.failureRate = rate
	return b
}

// WithProbabilisticFailures switches the failure model from one-every-rate
// to 1-in-rate per qualifying erase.
func (b Builder) WithProbabilisticFailures() Builder {
	b.probabilistic = true
	return b
}

// WithSeed fixes the failure-injection RNG seed for reproducible runs.
func (b Builder) WithSeed(seed int64) Builder {
	b.seed = seed
	return b
}

// WithLogLevel enables transaction logging at the requested verbosity.
func (b Builder) WithLogLevel(level LogLevel) Builder {
	b.logLevel = level
	return b
}

// WithLogCapacity bounds the transaction log to a ring of the given number
// of entries. Zero keeps the log unbounded.
func (b Builder) WithLogCapacity(capacity int) Builder {
	b.logCapacity = capacity
	return b
}

// WithMultiwrite allows repeated clearing writes to the same region within
// one erase cycle.
func (b Builder) WithMultiwrite() Builder {
	b.multiwrite = true
	return b
}

// WithBackingFile memory-maps the device contents onto the given file, so
// that the flash image survives the process. Metadata (erase counts, wear
// state, the log) is not persisted.
func (b Builder) WithBackingFile(path string) Builder {
	b.backingFile = path
	return b
}

// Build builds a new Device.
func (b Builder) Build(name string) (*Device, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	pageCount := b.capacity / b.eraseUnit
	unitsPerPage := b.eraseUnit / b.writeUnit

	d := &Device{
		HookableBase: NewHookableBase(),
		name:         name,
		capacity:     b.capacity,
		readUnit:     b.readUnit,
		writeUnit:    b.writeUnit,
		eraseUnit:    b.eraseUnit,
		multiwrite:   b.multiwrite,
		pages:        make([]page, pageCount),
		wear: newWearModel(
			b.minEraseCycles, b.failureRate, b.probabilistic, b.seed),
		log: newTransactionLog(b.logLevel, b.logCapacity),
	}

	if !b.multiwrite {
		for i := range d.pages {
			d.pages[i].written = make([]bool, unitsPerPage)
		}
	}

	if b.backingFile != "" {
		if err := d.mapBackingFile(b.backingFile); err != nil {
			return nil, err
		}
	} else {
		d.data = make([]byte, b.capacity)
		for i := range d.data {
			d.data[i] = 0xFF
		}
	}

	return d, nil
}

func (b Builder) validate() error {
	if b.capacity == 0 {
		return ErrInvalidConfig.New("capacity must not be zero")
	}
	if b.readUnit == 0 || b.writeUnit == 0 || b.eraseUnit == 0 {
		return ErrInvalidConfig.New(
			"units must not be zero: read %d, write %d, erase %d",
			b.readUnit, b.writeUnit, b.eraseUnit)
	}
	if b.capacity%b.eraseUnit != 0 {
		return ErrInvalidConfig.New(
			"erase unit %d does not divide capacity %d",
			b.eraseUnit, b.capacity)
	}
	if b.eraseUnit%b.writeUnit != 0 {
		return ErrInvalidConfig.New(
			"write unit %d does not divide erase unit %d",
			b.writeUnit, b.eraseUnit)
	}
	if b.writeUnit%b.readUnit != 0 {
		return ErrInvalidConfig.New(
			"read unit %d does not divide write unit %d",
			b.readUnit, b.writeUnit)
	}
	if b.minEraseCycles > 0 && b.failureRate == 0 {
		return ErrInvalidConfig.New(
			"wear threshold %d set but failure rate is zero", b.minEraseCycles)
	}
	if b.logCapacity < 0 {
		return ErrInvalidConfig.New(
			"log capacity must not be negative, got %d", b.logCapacity)
	}
	return nil
}
