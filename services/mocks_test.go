package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mercadopro/mercadopro_backend/models"
)

// In-memory store implementations shared by the service tests.

type memUserStore struct {
	users map[string]*models.User
}

func newMemUserStore(users ...*models.User) *memUserStore {
	s := &memUserStore{users: make(map[string]*models.User)}
	for _, u := range users {
		s.users[u.ID.Hex()] = u
	}
	return s
}

func (s *memUserStore) FindByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, ErrNotFound
}

func (s *memUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memUserStore) CountByRole(_ context.Context) (map[models.Role]int64, error) {
	out := make(map[models.Role]int64)
	for _, u := range s.users {
		out[u.Role]++
	}
	return out, nil
}

type memCatalogStore struct {
	products       map[string]*models.Product
	assignments    map[primitive.ObjectID][]models.ProductVendor
	vendors        map[primitive.ObjectID]*models.Vendor
	companyVendors map[primitive.ObjectID]*models.Vendor
	companies      map[primitive.ObjectID]*models.Company
}

func newMemCatalogStore() *memCatalogStore {
	return &memCatalogStore{
		products:       make(map[string]*models.Product),
		assignments:    make(map[primitive.ObjectID][]models.ProductVendor),
		vendors:        make(map[primitive.ObjectID]*models.Vendor),
		companyVendors: make(map[primitive.ObjectID]*models.Vendor),
		companies:      make(map[primitive.ObjectID]*models.Company),
	}
}

func (s *memCatalogStore) GetProduct(_ context.Context, id string) (*models.Product, error) {
	if p, ok := s.products[id]; ok {
		return p, nil
	}
	return nil, ErrNotFound
}

func (s *memCatalogStore) VendorAssignments(_ context.Context, productID primitive.ObjectID) ([]models.ProductVendor, error) {
	return s.assignments[productID], nil
}

func (s *memCatalogStore) GetVendor(_ context.Context, id primitive.ObjectID) (*models.Vendor, error) {
	if v, ok := s.vendors[id]; ok {
		return v, nil
	}
	return nil, ErrNotFound
}

func (s *memCatalogStore) FirstVendorOfCompany(_ context.Context, companyID primitive.ObjectID) (*models.Vendor, error) {
	if v, ok := s.companyVendors[companyID]; ok {
		return v, nil
	}
	return nil, ErrNotFound
}

func (s *memCatalogStore) GetCompany(_ context.Context, id primitive.ObjectID) (*models.Company, error) {
	if c, ok := s.companies[id]; ok {
		return c, nil
	}
	return nil, ErrNotFound
}

type memOrderStore struct {
	mu         sync.Mutex
	orders     []models.Order
	failInsert bool
}

func (s *memOrderStore) Insert(_ context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failInsert {
		return errors.New("insert failed")
	}
	for _, existing := range s.orders {
		if existing.VendorID == order.VendorID && existing.PaymentIntentID == order.PaymentIntentID {
			return ErrDuplicateOrder
		}
	}
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	s.orders = append(s.orders, *order)
	return nil
}

func (s *memOrderStore) ListByPayment(_ context.Context, paymentIntentID string) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Order
	for _, o := range s.orders {
		if o.PaymentIntentID == paymentIntentID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *memOrderStore) ListByPayer(_ context.Context, payerID string) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Order
	for _, o := range s.orders {
		if o.PayerID == payerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *memOrderStore) ListByCompany(_ context.Context, companyID primitive.ObjectID) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Order
	for _, o := range s.orders {
		if o.CompanyID == companyID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *memOrderStore) Totals(_ context.Context) (int64, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var revenue float64
	for _, o := range s.orders {
		revenue += o.Total
	}
	return int64(len(s.orders)), revenue, nil
}

type memReferralStore struct {
	mu         sync.Mutex
	rows       []models.Referral
	failInsert bool
}

func (s *memReferralStore) Insert(_ context.Context, referral *models.Referral) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failInsert {
		return errors.New("insert failed")
	}
	for _, existing := range s.rows {
		if existing.ReferrerID == referral.ReferrerID && existing.PaymentIntentID == referral.PaymentIntentID {
			return ErrDuplicateCommission
		}
	}
	if referral.ID.IsZero() {
		referral.ID = primitive.NewObjectID()
	}
	s.rows = append(s.rows, *referral)
	return nil
}

func (s *memReferralStore) FindByReferrerAndPayment(_ context.Context, referrerID, paymentIntentID string) (*models.Referral, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if s.rows[i].ReferrerID == referrerID && s.rows[i].PaymentIntentID == paymentIntentID {
			return &s.rows[i], nil
		}
	}
	return nil, ErrNotFound
}

func (s *memReferralStore) FindByID(_ context.Context, id string) (*models.Referral, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if s.rows[i].ID.Hex() == id {
			return &s.rows[i], nil
		}
	}
	return nil, ErrNotFound
}

func (s *memReferralStore) MarkPaid(_ context.Context, id string, paidAt time.Time) (*models.Referral, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if s.rows[i].ID.Hex() == id {
			s.rows[i].Status = models.ReferralStatusPaid
			s.rows[i].PaidAt = &paidAt
			s.rows[i].UpdatedAt = time.Now()
			return &s.rows[i], nil
		}
	}
	return nil, ErrNotFound
}

func (s *memReferralStore) ListByReferrer(_ context.Context, referrerID string) ([]models.Referral, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Referral
	for _, r := range s.rows {
		if r.ReferrerID == referrerID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memReferralStore) ListAll(_ context.Context) ([]models.Referral, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Referral(nil), s.rows...), nil
}

type memShortCodeStore struct {
	mu    sync.Mutex
	codes map[string]*models.ReferralShortCode
	carts map[string]*models.SharedCartLink
}

func newMemShortCodeStore() *memShortCodeStore {
	return &memShortCodeStore{
		codes: make(map[string]*models.ReferralShortCode),
		carts: make(map[string]*models.SharedCartLink),
	}
}

func (s *memShortCodeStore) FindByUser(_ context.Context, userID string) (*models.ReferralShortCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sc := range s.codes {
		if sc.UserID == userID {
			return sc, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memShortCodeStore) FindByCode(_ context.Context, code string) (*models.ReferralShortCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sc, ok := s.codes[code]; ok {
		return sc, nil
	}
	return nil, ErrNotFound
}

func (s *memShortCodeStore) Insert(_ context.Context, sc *models.ReferralShortCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.codes[sc.ShortCode]; ok {
		return ErrDuplicateCode
	}
	if sc.ID.IsZero() {
		sc.ID = primitive.NewObjectID()
	}
	s.codes[sc.ShortCode] = sc
	return nil
}

func (s *memShortCodeStore) CodeInUse(_ context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.codes[code]; ok {
		return true, nil
	}
	_, ok := s.carts[code]
	return ok, nil
}

func (s *memShortCodeStore) InsertCart(_ context.Context, cart *models.SharedCartLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.carts[cart.ShortCode]; ok {
		return ErrDuplicateCode
	}
	if cart.ID.IsZero() {
		cart.ID = primitive.NewObjectID()
	}
	s.carts[cart.ShortCode] = cart
	return nil
}

func (s *memShortCodeStore) FindCartByCode(_ context.Context, code string) (*models.SharedCartLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cart, ok := s.carts[code]; ok {
		return cart, nil
	}
	return nil, ErrNotFound
}

type sentMail struct {
	to      string
	subject string
}

type memMailer struct {
	mu               sync.Mutex
	companyMails     []sentMail
	commissionMails  []sentMail
	failCompanyMails bool
}

func (m *memMailer) SendMail(opts MailOptions) error {
	return nil
}

func (m *memMailer) SendCompanyOrderNotification(companyEmail, companyName string, details CompanyOrderDetails) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCompanyMails {
		return errors.New("smtp down")
	}
	m.companyMails = append(m.companyMails, sentMail{to: companyEmail, subject: companyName})
	return nil
}

func (m *memMailer) SendCommissionEmail(to, referrerName, referredName string, amount, commission float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commissionMails = append(m.commissionMails, sentMail{to: to, subject: fmt.Sprintf("%.2f", commission)})
	return nil
}

func (m *memMailer) companyMailCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.companyMails)
}

func (m *memMailer) commissionMailCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.commissionMails)
}

type stubGateway struct {
	verification *models.VerificationResult
	verifyErr    error
	intentResult *models.IntentResult
	intentErr    error
}

func (g *stubGateway) CreateIntent(_ context.Context, _ models.CreateIntentRequest) (*models.IntentResult, error) {
	return g.intentResult, g.intentErr
}

func (g *stubGateway) Verify(_ context.Context, _ string) (*models.VerificationResult, error) {
	return g.verification, g.verifyErr
}

type memLatch struct {
	mu    sync.Mutex
	taken map[string]bool
	err   error
}

func newMemLatch() *memLatch {
	return &memLatch{taken: make(map[string]bool)}
}

func (l *memLatch) TryLock(_ context.Context, paymentIntentID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	if l.taken[paymentIntentID] {
		return false, nil
	}
	l.taken[paymentIntentID] = true
	return true, nil
}

func (l *memLatch) Unlock(_ context.Context, paymentIntentID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.taken, paymentIntentID)
	return nil
}

func (l *memLatch) held(paymentIntentID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.taken[paymentIntentID]
}

type memPush struct {
	mu    sync.Mutex
	sends []string
}

func (p *memPush) SendToUser(_ context.Context, userID, _, _ string, _ map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sends = append(p.sends, userID)
	return nil
}
