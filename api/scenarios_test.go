/*
scenarios_test.go - Tests for demo scenarios

PURPOSE:
	Each scenario must load cleanly through the write protocol and leave
	the ledger in the state its description promises. These double as
	end-to-end checks of the split methods.
*/
package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadScenario(t *testing.T, env *testEnv, id string) {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/api/scenarios/load", map[string]string{"scenario_id": id}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestScenarios_AllLoad(t *testing.T) {
	for _, s := range scenarios {
		t.Run(s.ID, func(t *testing.T) {
			env := newTestEnv(t, envOptions{})
			loadScenario(t, env, s.ID)

			current := decode[ScenarioDTO](t, env.do(t, http.MethodGet, "/api/scenarios/current", nil, ""))
			assert.Equal(t, s.ID, current.ID)
		})
	}
}

func TestScenario_PizzaNight(t *testing.T) {
	// GIVEN: The pizza-night scenario
	// WHEN: Reading carol's expenses
	// THEN: She only shares the drinks, plus her proportional part of tax and tip

	env := newTestEnv(t, envOptions{})
	loadScenario(t, env, "pizza-night")

	list := decode[[]ExpenseDTO](t, env.do(t, http.MethodGet, "/api/users/"+personID("carol")+"/expenses", nil, ""))
	require.Len(t, list, 1)

	view := decode[ExpenseDTO](t, env.do(t, http.MethodGet, "/api/expenses/"+list[0].ID, nil, ""))
	require.NotNil(t, view.Latest)
	assert.Equal(t, "itemized", view.Latest.SplitMethod)
	require.Len(t, view.Latest.Items, 2)

	owed := make([]string, len(view.Latest.Splits))
	for i, s := range view.Latest.Splits {
		owed[i] = s.AmountOwed.StringFixed(2)
	}
	assert.Equal(t, []string{"33.79", "33.78", "8.43"}, owed)
}

func TestScenario_WeekendTrip(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	loadScenario(t, env, "weekend-trip")

	group := decode[[]ExpenseDTO](t, env.do(t, http.MethodGet, "/api/groups/group-trip/expenses", nil, ""))
	require.Len(t, group, 3)
	for _, e := range group {
		assert.Equal(t, "EUR", e.Currency)
	}

	var cabinID string
	settled := 0
	for _, e := range group {
		if e.Description == "Cabin rental" {
			cabinID = e.ID
		}
		if e.Status == "settled" {
			settled++
		}
	}
	require.NotEmpty(t, cabinID)
	assert.Equal(t, 1, settled)

	versions := decode[[]TransactionDTO](t, env.do(t, http.MethodGet, "/api/expenses/"+cabinID+"/versions", nil, ""))
	require.Len(t, versions, 2)
	assertAmount(t, "192", versions[1].Splits[0].AmountOwed)
	assertAmount(t, "96", versions[1].Splits[1].AmountOwed)

	// Outstanding for bob: 96 of the cabin to alice, 20.50 of groceries to carol.
	bob := decode[BalancesResponse](t, env.do(t, http.MethodGet, "/api/users/"+personID("bob")+"/balances", nil, ""))
	require.Len(t, bob.Balances, 1)
	assertAmount(t, "116.5", bob.Balances[0].UserOwes)
	assertAmount(t, "0", bob.Balances[0].OwedToUser)
}

func TestScenario_LoadResetsPreviousData(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	loadScenario(t, env, "team-dinner")
	loadScenario(t, env, "drinks")

	alice := decode[[]ExpenseDTO](t, env.do(t, http.MethodGet, "/api/users/"+personID("alice")+"/expenses", nil, ""))
	require.Len(t, alice, 1)
	assert.Equal(t, "Drinks", alice[0].Description)
}

func TestScenario_ConcurrentLoadsStayConsistent(t *testing.T) {
	// GIVEN: Two scenarios loaded by concurrent requests while others read the current one
	// WHEN: All requests have finished
	// THEN: The store holds exactly the scenario reported as current

	env := newTestEnv(t, envOptions{})
	want := map[string]string{"team-dinner": "Team dinner", "drinks": "Drinks"}

	var wg sync.WaitGroup
	codes := make(chan int, 32)
	for i := 0; i < 16; i++ {
		id := "team-dinner"
		if i%2 == 1 {
			id = "drinks"
		}
		wg.Add(2)
		go func() {
			defer wg.Done()
			body := strings.NewReader(fmt.Sprintf(`{"scenario_id": %q}`, id))
			rec := httptest.NewRecorder()
			env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/scenarios/load", body))
			codes <- rec.Code
		}()
		go func() {
			defer wg.Done()
			rec := httptest.NewRecorder()
			env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/scenarios/current", nil))
			codes <- rec.Code
		}()
	}
	wg.Wait()
	close(codes)
	for code := range codes {
		assert.Equal(t, http.StatusOK, code)
	}

	current := decode[ScenarioDTO](t, env.do(t, http.MethodGet, "/api/scenarios/current", nil, ""))
	require.Contains(t, want, current.ID)

	alice := decode[[]ExpenseDTO](t, env.do(t, http.MethodGet, "/api/users/"+personID("alice")+"/expenses", nil, ""))
	require.Len(t, alice, 1)
	assert.Equal(t, want[current.ID], alice[0].Description)
}

func TestScenario_Unknown(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	rec := env.do(t, http.MethodPost, "/api/scenarios/load", map[string]string{"scenario_id": "nope"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScenarioRoutes_DisabledWithoutReset(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	env.handler.Reset = nil
	router := NewRouter(env.handler, nil)
	env.router = router

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/scenarios/", nil, "").Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPost, "/api/admin/reset", nil, "").Code)
}

func TestResetStore(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	loadScenario(t, env, "team-dinner")

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/admin/reset", nil, "").Code)

	list := decode[[]ExpenseDTO](t, env.do(t, http.MethodGet, "/api/users/"+personID("alice")+"/expenses", nil, ""))
	assert.Empty(t, list)
}
