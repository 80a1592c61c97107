// internal/adapters/memory/customers.go
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/ammerola/pharmacy-pos/internal/core/domain"
	"github.com/ammerola/pharmacy-pos/internal/core/ports"
)

// Create stores a new customer; the phone must be unused
func (s *Store) Create(ctx context.Context, customer *domain.Customer) error {
	if err := ctx.Err(); err != nil {
		return domain.StorageUnavailable("create customer", err)
	}

	unlock := s.locks.acquire(customerKey(customer.Phone), false)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.phones[customer.Phone]; taken {
		return fmt.Errorf("%w: customer with phone %s", domain.ErrAlreadyExists, customer.Phone)
	}

	s.nextCustomerID++
	customer.ID = s.nextCustomerID
	now := s.now()
	customer.CreatedAt, customer.UpdatedAt = now, now

	stored := *customer
	s.customers[customer.ID] = &stored
	s.phones[customer.Phone] = customer.ID
	return nil
}

// Get returns a customer by id
func (s *Store) Get(ctx context.Context, customerID int64) (*domain.Customer, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.StorageUnavailable("get customer", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customers[customerID]
	if !ok {
		return nil, domain.NewNotFound("customer", customerID)
	}
	found := *c
	return &found, nil
}

// GetByPhone returns a customer by its phone number
func (s *Store) GetByPhone(ctx context.Context, phone string) (*domain.Customer, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.StorageUnavailable("get customer", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.customerByPhoneLocked(phone)
}

func (s *Store) customerByPhoneLocked(phone string) (*domain.Customer, error) {
	id, ok := s.phones[phone]
	if !ok {
		return nil, domain.NewNotFound("customer", phone)
	}
	found := *s.customers[id]
	return &found, nil
}

// Update changes the customer contact fields. A phone change is refused while
// sales reference the old number.
func (s *Store) Update(ctx context.Context, customer *domain.Customer) error {
	if err := ctx.Err(); err != nil {
		return domain.StorageUnavailable("update customer", err)
	}

	s.mu.RLock()
	current, ok := s.customers[customer.ID]
	var oldPhone string
	if ok {
		oldPhone = current.Phone
	}
	s.mu.RUnlock()
	if !ok {
		return domain.NewNotFound("customer", customer.ID)
	}

	keys := []string{customerKey(oldPhone)}
	if customer.Phone != oldPhone {
		keys = append(keys, customerKey(customer.Phone))
		slices.Sort(keys)
	}
	for _, key := range keys {
		unlock := s.locks.acquire(key, false)
		defer unlock()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok = s.customers[customer.ID]
	if !ok {
		return domain.NewNotFound("customer", customer.ID)
	}
	if current.Phone != oldPhone {
		return fmt.Errorf("%w: customer %d changed concurrently", domain.ErrReferentialConflict, customer.ID)
	}
	if customer.Phone != current.Phone {
		if _, taken := s.phones[customer.Phone]; taken {
			return fmt.Errorf("%w: customer with phone %s", domain.ErrAlreadyExists, customer.Phone)
		}
		if n := s.countSalesLocked(current.Phone); n > 0 {
			return fmt.Errorf("%w: phone of customer %d is referenced by %d sales",
				domain.ErrReferentialConflict, customer.ID, n)
		}
		delete(s.phones, current.Phone)
		s.phones[customer.Phone] = customer.ID
	}

	current.Name = customer.Name
	current.Phone = customer.Phone
	current.Email = customer.Email
	current.Address = customer.Address
	current.UpdatedAt = s.now()

	*customer = *current
	return nil
}

// Delete removes a customer that no sale references
func (s *Store) Delete(ctx context.Context, customerID int64) error {
	if err := ctx.Err(); err != nil {
		return domain.StorageUnavailable("delete customer", err)
	}

	s.mu.RLock()
	c, ok := s.customers[customerID]
	var phone string
	if ok {
		phone = c.Phone
	}
	s.mu.RUnlock()
	if !ok {
		return domain.NewNotFound("customer", customerID)
	}

	unlock := s.locks.acquire(customerKey(phone), false)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok = s.customers[customerID]
	if !ok {
		return domain.NewNotFound("customer", customerID)
	}
	if c.Phone != phone {
		return fmt.Errorf("%w: customer %d changed concurrently", domain.ErrReferentialConflict, customerID)
	}
	if n := s.countSalesLocked(phone); n > 0 {
		return fmt.Errorf("%w: customer %d has %d sales", domain.ErrReferentialConflict, customerID, n)
	}
	delete(s.customers, customerID)
	delete(s.phones, phone)
	return nil
}

// List filters and pages customers ordered by name
func (s *Store) List(ctx context.Context, filter ports.CustomerFilter) (*ports.CustomerPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.StorageUnavailable("list customers", err)
	}
	filter.Normalize()
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	s.mu.RLock()
	matched := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		if search != "" &&
			!strings.Contains(strings.ToLower(c.Name), search) &&
			!strings.Contains(c.Phone, search) &&
			!strings.Contains(strings.ToLower(c.Email), search) {
			continue
		}
		matched = append(matched, *c)
	}
	s.mu.RUnlock()

	slices.SortFunc(matched, func(a, b domain.Customer) int {
		return cmp.Or(
			cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)),
			cmp.Compare(a.ID, b.ID),
		)
	})

	total := int64(len(matched))
	start := min((filter.Page-1)*filter.PageSize, len(matched))
	end := min(start+filter.PageSize, len(matched))

	return &ports.CustomerPage{
		Customers:  matched[start:end],
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
		TotalPages: ports.TotalPages(total, filter.PageSize),
	}, nil
}

func (s *Store) countSalesLocked(phone string) int {
	n := 0
	for _, sale := range s.sales {
		if sale.CustomerPhone == phone {
			n++
		}
	}
	return n
}
