package startgg

const tournamentQuery = `
query TournamentQuery($slug: String!) {
  tournament(slug: $slug) {
    id
    slug
    name
    state
    isRegistrationOpen
    registrationClosesAt
    events {
      id
      name
      numEntrants
      state
    }
  }
}`

const eventSetsQuery = `
query EventSets($eventId: ID!, $page: Int!, $perPage: Int!) {
  event(id: $eventId) {
    id
    sets(page: $page, perPage: $perPage, sortType: STANDARD) {
      pageInfo {
        total
        totalPages
      }
      nodes {
        id
        identifier
        fullRoundText
        round
        state
        slots {
          entrant {
            id
            name
          }
          standing {
            stats {
              score {
                value
              }
            }
          }
        }
      }
    }
  }
}`

const eventEntrantsQuery = `
query EventEntrants($eventId: ID!, $page: Int!, $perPage: Int!) {
  event(id: $eventId) {
    id
    entrants(query: {page: $page, perPage: $perPage}) {
      pageInfo {
        total
        totalPages
      }
      nodes {
        id
        name
        participants {
          user {
            authorizations(types: [DISCORD]) {
              externalId
            }
          }
        }
      }
    }
  }
}`

const reportSetMutation = `
mutation ReportSet($setId: ID!, $winnerId: ID!) {
  reportBracketSet(setId: $setId, winnerId: $winnerId) {
    id
    state
  }
}`

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse[T any] struct {
	Data    T              `json:"data"`
	Errors  []graphQLError `json:"errors"`
	Success *bool          `json:"success"`
	Message string         `json:"message"`
}

type pageInfoDTO struct {
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type tournamentData struct {
	Tournament *struct {
		ID                   ID     `json:"id"`
		Slug                 string `json:"slug"`
		Name                 string `json:"name"`
		State                *int   `json:"state"`
		IsRegistrationOpen   *bool  `json:"isRegistrationOpen"`
		RegistrationClosesAt *int64 `json:"registrationClosesAt"`
		Events               []struct {
			ID          ID     `json:"id"`
			Name        string `json:"name"`
			NumEntrants *int   `json:"numEntrants"`
			State       string `json:"state"`
		} `json:"events"`
	} `json:"tournament"`
}

type eventSetsData struct {
	Event *struct {
		ID   ID `json:"id"`
		Sets *struct {
			PageInfo pageInfoDTO `json:"pageInfo"`
			Nodes    []struct {
				ID            ID     `json:"id"`
				Identifier    string `json:"identifier"`
				FullRoundText string `json:"fullRoundText"`
				Round         *int   `json:"round"`
				State         *int   `json:"state"`
				Slots         []struct {
					Entrant *struct {
						ID   ID     `json:"id"`
						Name string `json:"name"`
					} `json:"entrant"`
					Standing *struct {
						Stats *struct {
							Score *struct {
								Value *float64 `json:"value"`
							} `json:"score"`
						} `json:"stats"`
					} `json:"standing"`
				} `json:"slots"`
			} `json:"nodes"`
		} `json:"sets"`
	} `json:"event"`
}

type eventEntrantsData struct {
	Event *struct {
		ID       ID `json:"id"`
		Entrants *struct {
			PageInfo pageInfoDTO `json:"pageInfo"`
			Nodes    []struct {
				ID           ID     `json:"id"`
				Name         string `json:"name"`
				Participants []struct {
					User *struct {
						Authorizations []struct {
							ExternalID string `json:"externalId"`
						} `json:"authorizations"`
					} `json:"user"`
				} `json:"participants"`
			} `json:"nodes"`
		} `json:"entrants"`
	} `json:"event"`
}

type reportSetData struct {
	ReportBracketSet []struct {
		ID    ID   `json:"id"`
		State *int `json:"state"`
	} `json:"reportBracketSet"`
}
