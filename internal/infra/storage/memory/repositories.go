package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	domainbuyrequest "github.com/locomproapp/locompro/internal/domain/buyrequest"
	domainchat "github.com/locomproapp/locompro/internal/domain/chat"
	domainoffer "github.com/locomproapp/locompro/internal/domain/offer"
	domainreview "github.com/locomproapp/locompro/internal/domain/review"
	"github.com/locomproapp/locompro/internal/domain/shared/storage"
)

// BuyRequestRepository is an in-memory implementation with the same versioned
// write semantics as the mongo one: a Save with a stale Version fails.
type BuyRequestRepository struct {
	mu    sync.RWMutex
	items map[domainbuyrequest.BuyRequestID]*domainbuyrequest.BuyRequest
}

func NewBuyRequestRepository() *BuyRequestRepository {
	return &BuyRequestRepository{
		items: make(map[domainbuyrequest.BuyRequestID]*domainbuyrequest.BuyRequest),
	}
}

func (r *BuyRequestRepository) ByID(ctx context.Context, id domainbuyrequest.BuyRequestID) (*domainbuyrequest.BuyRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	request, ok := r.items[id]
	if !ok {
		return nil, domainbuyrequest.ErrNotFound
	}
	return cloneBuyRequest(request), nil
}

func (r *BuyRequestRepository) Save(ctx context.Context, request *domainbuyrequest.BuyRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.items[request.ID]; ok && existing.Version != request.Version {
		return storage.ErrConcurrentUpdate
	}
	request.Version++
	r.items[request.ID] = cloneBuyRequest(request)
	return nil
}

func (r *BuyRequestRepository) Delete(ctx context.Context, id domainbuyrequest.BuyRequestID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return domainbuyrequest.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

// Search filters and orders requests the way the mongo repository does.
func (r *BuyRequestRepository) Search(ctx context.Context, params domainbuyrequest.SearchParams) (domainbuyrequest.SearchResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	opts := params.Normalized()
	matches := make([]*domainbuyrequest.BuyRequest, 0, len(r.items))
	for _, request := range r.items {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return domainbuyrequest.SearchResult{}, ctx.Err()
			default:
			}
		}
		if opts.Status != "" && request.Status != opts.Status {
			continue
		}
		if opts.Owner != "" && request.Owner != opts.Owner {
			continue
		}
		if opts.Zone != "" && !strings.EqualFold(request.Zone, opts.Zone) {
			continue
		}
		if opts.Query != "" && !matchQuery(request, opts.Query) {
			continue
		}
		if opts.MinPriceCents > 0 && request.MaxPriceCents > 0 && request.MaxPriceCents < opts.MinPriceCents {
			continue
		}
		if opts.MaxPriceCents > 0 && request.MinPriceCents > opts.MaxPriceCents {
			continue
		}
		matches = append(matches, request)
	}

	sort.Slice(matches, func(i, j int) bool {
		switch opts.Sort {
		case domainbuyrequest.SortByUpdated:
			if matches[i].UpdatedAt.Equal(matches[j].UpdatedAt) {
				return matches[i].ID < matches[j].ID
			}
			return matches[i].UpdatedAt.After(matches[j].UpdatedAt)
		case domainbuyrequest.SortByPriceAsc:
			if matches[i].MaxPriceCents == matches[j].MaxPriceCents {
				return matches[i].CreatedAt.After(matches[j].CreatedAt)
			}
			return matches[i].MaxPriceCents < matches[j].MaxPriceCents
		case domainbuyrequest.SortByPriceDesc:
			if matches[i].MaxPriceCents == matches[j].MaxPriceCents {
				return matches[i].CreatedAt.After(matches[j].CreatedAt)
			}
			return matches[i].MaxPriceCents > matches[j].MaxPriceCents
		default:
			if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
				return matches[i].ID < matches[j].ID
			}
			return matches[i].CreatedAt.After(matches[j].CreatedAt)
		}
	})

	total := len(matches)
	start := opts.Offset
	if start > total {
		start = total
	}
	end := start + opts.Limit
	if end > total {
		end = total
	}
	page := make([]*domainbuyrequest.BuyRequest, 0, end-start)
	for _, request := range matches[start:end] {
		page = append(page, cloneBuyRequest(request))
	}
	return domainbuyrequest.SearchResult{Items: page, Total: total}, nil
}

func matchQuery(request *domainbuyrequest.BuyRequest, needle string) bool {
	full := strings.ToLower(request.Title + " " + request.Description)
	return strings.Contains(full, needle)
}

// OfferRepository stores offers in memory with conditional versioned writes.
type OfferRepository struct {
	mu    sync.RWMutex
	items map[domainoffer.OfferID]*domainoffer.Offer
}

func NewOfferRepository() *OfferRepository {
	return &OfferRepository{items: make(map[domainoffer.OfferID]*domainoffer.Offer)}
}

func (r *OfferRepository) ByID(ctx context.Context, id domainoffer.OfferID) (*domainoffer.Offer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	offer, ok := r.items[id]
	if !ok {
		return nil, domainoffer.ErrNotFound
	}
	return cloneOffer(offer), nil
}

// Save fails with storage.ErrConcurrentUpdate when the stored version moved
// on; racing accepts on the same offer get exactly one winner.
func (r *OfferRepository) Save(ctx context.Context, offer *domainoffer.Offer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.items[offer.ID]; ok && existing.Version != offer.Version {
		return storage.ErrConcurrentUpdate
	}
	offer.Version++
	r.items[offer.ID] = cloneOffer(offer)
	return nil
}

func (r *OfferRepository) ListByBuyRequest(ctx context.Context, buyRequestID domainbuyrequest.BuyRequestID) ([]*domainoffer.Offer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matches := make([]*domainoffer.Offer, 0)
	for _, offer := range r.items {
		if offer.BuyRequestID == buyRequestID {
			matches = append(matches, cloneOffer(offer))
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.Before(matches[j].CreatedAt)
	})
	return matches, nil
}

func (r *OfferRepository) ListBySeller(ctx context.Context, sellerID domainoffer.SellerID) ([]*domainoffer.Offer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matches := make([]*domainoffer.Offer, 0)
	for _, offer := range r.items {
		if offer.Seller == sellerID {
			matches = append(matches, cloneOffer(offer))
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].UpdatedAt.After(matches[j].UpdatedAt)
	})
	return matches, nil
}

func (r *OfferRepository) Delete(ctx context.Context, id domainoffer.OfferID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return domainoffer.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

// ChatRepository keeps chats and messages in memory. The triple index backs
// the find-or-create behavior of the acceptance flow.
type ChatRepository struct {
	mu       sync.RWMutex
	items    map[domainchat.ChatID]*domainchat.Chat
	byTriple map[string]domainchat.ChatID
	messages map[domainchat.ChatID][]*domainchat.Message
}

func NewChatRepository() *ChatRepository {
	return &ChatRepository{
		items:    make(map[domainchat.ChatID]*domainchat.Chat),
		byTriple: make(map[string]domainchat.ChatID),
		messages: make(map[domainchat.ChatID][]*domainchat.Message),
	}
}

func (r *ChatRepository) ByID(ctx context.Context, id domainchat.ChatID) (*domainchat.Chat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	chat, ok := r.items[id]
	if !ok {
		return nil, domainchat.ErrNotFound
	}
	return cloneChat(chat), nil
}

func (r *ChatRepository) FindByTriple(ctx context.Context, buyRequestID domainbuyrequest.BuyRequestID, buyerID, sellerID string) (*domainchat.Chat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byTriple[tripleKey(buyRequestID, buyerID, sellerID)]
	if !ok {
		return nil, domainchat.ErrNotFound
	}
	return cloneChat(r.items[id]), nil
}

func (r *ChatRepository) Save(ctx context.Context, chat *domainchat.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := tripleKey(chat.BuyRequestID, chat.BuyerID, chat.SellerID)
	if existingID, ok := r.byTriple[key]; ok && existingID != chat.ID {
		return domainchat.ErrAlreadyExists
	}
	r.byTriple[key] = chat.ID
	r.items[chat.ID] = cloneChat(chat)
	return nil
}

func (r *ChatRepository) ListByParticipant(ctx context.Context, userID string) ([]*domainchat.Chat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matches := make([]*domainchat.Chat, 0)
	for _, chat := range r.items {
		if chat.HasParticipant(userID) {
			matches = append(matches, cloneChat(chat))
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].UpdatedAt.After(matches[j].UpdatedAt)
	})
	return matches, nil
}

func (r *ChatRepository) AppendMessage(ctx context.Context, message *domainchat.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	chat, ok := r.items[message.ChatID]
	if !ok {
		return domainchat.ErrNotFound
	}
	copied := *message
	r.messages[message.ChatID] = append(r.messages[message.ChatID], &copied)
	if message.CreatedAt.After(chat.UpdatedAt) {
		chat.UpdatedAt = message.CreatedAt
	}
	return nil
}

func (r *ChatRepository) ListMessages(ctx context.Context, chatID domainchat.ChatID, limit int) ([]*domainchat.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.items[chatID]; !ok {
		return nil, domainchat.ErrNotFound
	}
	stored := r.messages[chatID]
	start := 0
	if limit > 0 && len(stored) > limit {
		start = len(stored) - limit
	}
	out := make([]*domainchat.Message, 0, len(stored)-start)
	for _, message := range stored[start:] {
		copied := *message
		out = append(out, &copied)
	}
	return out, nil
}

func tripleKey(buyRequestID domainbuyrequest.BuyRequestID, buyerID, sellerID string) string {
	return string(buyRequestID) + ":" + buyerID + ":" + sellerID
}

// ReviewRepository is a lightweight in-memory review store.
type ReviewRepository struct {
	mu    sync.RWMutex
	items map[string]*domainreview.Review
}

func NewReviewRepository() *ReviewRepository {
	return &ReviewRepository{items: make(map[string]*domainreview.Review)}
}

func (r *ReviewRepository) ByOffer(ctx context.Context, offerID domainoffer.OfferID, authorID string) (*domainreview.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if review, ok := r.items[reviewKey(offerID, authorID)]; ok {
		copied := *review
		return &copied, nil
	}
	return nil, domainreview.ErrNotFound
}

func (r *ReviewRepository) ListBySubject(ctx context.Context, subjectID string, limit, offset int) ([]*domainreview.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matches := make([]*domainreview.Review, 0)
	for _, review := range r.items {
		if review.SubjectID == subjectID {
			copied := *review
			matches = append(matches, &copied)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	if offset > len(matches) {
		offset = len(matches)
	}
	matches = matches[offset:]
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (r *ReviewRepository) Save(ctx context.Context, review *domainreview.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *review
	r.items[reviewKey(review.OfferID, review.AuthorID)] = &copied
	return nil
}

func reviewKey(offerID domainoffer.OfferID, authorID string) string {
	return string(offerID) + ":" + authorID
}

func cloneBuyRequest(request *domainbuyrequest.BuyRequest) *domainbuyrequest.BuyRequest {
	if request == nil {
		return nil
	}
	copied := *request
	copied.Images = append([]string(nil), request.Images...)
	return &copied
}

func cloneOffer(offer *domainoffer.Offer) *domainoffer.Offer {
	if offer == nil {
		return nil
	}
	copied := *offer
	copied.Images = append([]string(nil), offer.Images...)
	copied.PriceHistory = append([]domainoffer.HistoryEntry(nil), offer.PriceHistory...)
	return &copied
}

func cloneChat(chat *domainchat.Chat) *domainchat.Chat {
	if chat == nil {
		return nil
	}
	copied := *chat
	return &copied
}

var _ domainbuyrequest.Repository = (*BuyRequestRepository)(nil)
var _ domainoffer.Repository = (*OfferRepository)(nil)
var _ domainchat.Repository = (*ChatRepository)(nil)
var _ domainreview.Repository = (*ReviewRepository)(nil)
