package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"github.com/custodia-labs/dropbox-connector/internal/core/domain"
)

func TestDeliveryFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: initializeDeliveryScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
			Strict:   true,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

type deliveryWorld struct {
	fixture *syncFixture
	result  *domain.DeliveryResult
	err     error
}

func initializeDeliveryScenario(sc *godog.ScenarioContext) {
	w := &deliveryWorld{}

	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		w.fixture = buildSyncFixture(domain.DeliveryCursorFirst)
		w.result, w.err = nil, nil
		return ctx, nil
	})

	sc.Step(`^delivery mode "([^"]*)"$`, w.deliveryMode)
	sc.Step(`^account "([^"]*)" is registered at cursor "([^"]*)"$`, w.accountRegistered)
	sc.Step(`^the provider lists "([^"]*)" as files "([^"]*)" continuing to "([^"]*)"( with more)?$`, w.providerListsFiles)
	sc.Step(`^the provider lists "([^"]*)" continuing to "([^"]*)" with entries:$`, w.providerListsEntries)
	sc.Step(`^the credential lookup for "([^"]*)" fails$`, w.credentialLookupFails)
	sc.Step(`^posting events fails$`, w.postingFails)
	sc.Step(`^a notification arrives for "([^"]*)"$`, w.notificationArrives)
	sc.Step(`^the delivery succeeds$`, w.deliverySucceeds)
	sc.Step(`^the delivery fails$`, w.deliveryFails)
	sc.Step(`^the cursor for "([^"]*)" is "([^"]*)"$`, w.cursorIs)
	sc.Step(`^(\d+) events were posted for "([^"]*)"$`, w.eventsPosted)
	sc.Step(`^the posted links for "([^"]*)" are "([^"]*)"$`, w.postedLinks)
}

func (w *deliveryWorld) deliveryMode(mode string) error {
	m, err := domain.ParseDeliveryMode(mode)
	if err != nil {
		return err
	}
	w.fixture.engine.mode = m
	return nil
}

func (w *deliveryWorld) accountRegistered(accountID, cursor string) error {
	return w.fixture.registerAccount(accountID, cursor)
}

func (w *deliveryWorld) providerListsFiles(cursor, paths, next, more string) error {
	page := &domain.ChangePage{Cursor: next, HasMore: more != ""}
	for _, p := range strings.Split(paths, ",") {
		page.Entries = append(page.Entries, file(strings.TrimSpace(p)))
	}
	w.fixture.provider.Pages[cursor] = page
	return nil
}

func (w *deliveryWorld) providerListsEntries(cursor, next string, table *godog.Table) error {
	page := &domain.ChangePage{Cursor: next}
	for _, row := range table.Rows[1:] {
		page.Entries = append(page.Entries, domain.ChangeEntry{
			Kind: domain.EntryKind(row.Cells[0].Value),
			Path: row.Cells[1].Value,
		})
	}
	w.fixture.provider.Pages[cursor] = page
	return nil
}

func (w *deliveryWorld) credentialLookupFails(accountID string) error {
	tokens := w.fixture.platform.Tokens
	w.fixture.platform.LookupCredentialFn = func(id string) (string, error) {
		if id == accountID {
			return "", domain.NewTransportError("lookup credential", errors.New("connection reset"))
		}
		return tokens[id], nil
	}
	return nil
}

func (w *deliveryWorld) postingFails() error {
	w.fixture.platform.PostEventFn = func(domain.SyncEvent) error {
		return domain.NewRejectionError("post event", 503, "unavailable")
	}
	return nil
}

func (w *deliveryWorld) notificationArrives(accounts string) error {
	var ids []string
	for _, id := range strings.Split(accounts, ",") {
		ids = append(ids, strings.TrimSpace(id))
	}
	w.result, w.err = w.fixture.engine.HandleDelivery(context.Background(), ids)
	return nil
}

func (w *deliveryWorld) deliverySucceeds() error {
	if w.err != nil {
		return fmt.Errorf("expected delivery to succeed, got %v", w.err)
	}
	return nil
}

func (w *deliveryWorld) deliveryFails() error {
	if w.err == nil {
		return errors.New("expected delivery to fail")
	}
	return nil
}

func (w *deliveryWorld) cursorIs(accountID, want string) error {
	if got := w.fixture.accounts.Cursor(accountID); got != want {
		return fmt.Errorf("cursor for %s: got %q, want %q", accountID, got, want)
	}
	return nil
}

func (w *deliveryWorld) eventsPosted(want int, accountID string) error {
	if got := len(w.fixture.platform.EventsFor(accountID)); got != want {
		return fmt.Errorf("events for %s: got %d, want %d", accountID, got, want)
	}
	return nil
}

func (w *deliveryWorld) postedLinks(accountID, want string) error {
	got := strings.Join(links(w.fixture.platform.EventsFor(accountID)), ",")
	if got != want {
		return fmt.Errorf("links for %s: got %q, want %q", accountID, got, want)
	}
	return nil
}
