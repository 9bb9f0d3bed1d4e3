package graphql

import "github.com/aretw0/notely/pkg/core"

const noteFields = `
      id
      clientId
      name
      description
      completed`

const listNotesQuery = `query ListNotes($limit: Int, $nextToken: String) {
  listNotes(limit: $limit, nextToken: $nextToken) {
    items {` + noteFields + `
    }
    nextToken
  }
}`

const createNoteMutation = `mutation CreateNote($input: CreateNoteInput!) {
  createNote(input: $input) {` + noteFields + `
  }
}`

const updateNoteMutation = `mutation UpdateNote($input: UpdateNoteInput!) {
  updateNote(input: $input) {` + noteFields + `
  }
}`

const deleteNoteMutation = `mutation DeleteNote($input: DeleteNoteInput!) {
  deleteNote(input: $input) {` + noteFields + `
  }
}`

// subscription describes the document and result field of one event channel.
type subscription struct {
	field string
	query string
}

var subscriptions = map[core.EventType]subscription{
	core.EventCreate: {
		field: "onCreateNote",
		query: `subscription OnCreateNote {
  onCreateNote {` + noteFields + `
  }
}`,
	},
	core.EventUpdate: {
		field: "onUpdateNote",
		query: `subscription OnUpdateNote {
  onUpdateNote {` + noteFields + `
  }
}`,
	},
	core.EventDelete: {
		field: "onDeleteNote",
		query: `subscription OnDeleteNote {
  onDeleteNote {` + noteFields + `
  }
}`,
	},
}
