// Package bootstrap holds the static records the in-process mirror is
// seeded from.  The same records are copied into the durable store by the
// seed command so both sides start from identical legacy ids.
package bootstrap

import (
	_ "embed"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/iliyamo/hotel-backoffice/internal/model"
	"github.com/iliyamo/hotel-backoffice/internal/utils"
)

//go:embed bootstrap.yaml
var raw []byte

// staffSeed carries the plain password of a seeded account; it is hashed
// when the data is loaded and never stored.
type staffSeed struct {
	model.Staff `yaml:",inline"`
	Password    string `yaml:"password"`
}

type document struct {
	Rooms     []model.Room     `yaml:"rooms"`
	Customers []model.Customer `yaml:"customers"`
	Staff     []staffSeed      `yaml:"staff"`
}

// Data is the parsed bootstrap document.  Accessors return fresh copies.
type Data struct {
	bcryptCost int

	once sync.Once
	doc  document
	err  error
}

// New prepares the bootstrap data; staff passwords are hashed with cost on
// first access.
func New(bcryptCost int) *Data {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Data{bcryptCost: bcryptCost}
}

func (d *Data) load() error {
	d.once.Do(func() {
		if err := yaml.Unmarshal(raw, &d.doc); err != nil {
			d.err = errors.Wrap(err, "bootstrap: parse")
			return
		}
		for i := range d.doc.Staff {
			s := &d.doc.Staff[i]
			if s.Password == "" {
				continue
			}
			hash, err := utils.HashPassword(s.Password, d.bcryptCost)
			if err != nil {
				d.err = errors.Wrapf(err, "bootstrap: hash password for %s", s.Username)
				return
			}
			s.PasswordHash = hash
			s.Password = ""
		}
	})
	return d.err
}

func (d *Data) Rooms() ([]*model.Room, error) {
	if err := d.load(); err != nil {
		return nil, err
	}
	out := make([]*model.Room, 0, len(d.doc.Rooms))
	for _, r := range d.doc.Rooms {
		r := r
		out = append(out, &r)
	}
	return out, nil
}

func (d *Data) Customers() ([]*model.Customer, error) {
	if err := d.load(); err != nil {
		return nil, err
	}
	out := make([]*model.Customer, 0, len(d.doc.Customers))
	for _, c := range d.doc.Customers {
		c := c
		out = append(out, &c)
	}
	return out, nil
}

func (d *Data) Staff() ([]*model.Staff, error) {
	if err := d.load(); err != nil {
		return nil, err
	}
	out := make([]*model.Staff, 0, len(d.doc.Staff))
	for _, s := range d.doc.Staff {
		st := s.Staff
		out = append(out, &st)
	}
	return out, nil
}
