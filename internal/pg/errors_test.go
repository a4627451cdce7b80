package pg

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsMissingRelation(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "supabase style message",
			err:  errors.New(`relation "public.todos" does not exist`),
			want: true,
		},
		{
			name: "pgx style message",
			err:  errors.New(`ERROR: relation "todos" does not exist (SQLSTATE 42P01)`),
			want: true,
		},
		{
			name: "wrapped message",
			err:  fmt.Errorf("failed to list todos: %w", errors.New(`relation "public.todos" does not exist`)),
			want: true,
		},
		{
			name: "connection refused",
			err:  errors.New("connection refused"),
			want: false,
		},
		{
			name: "only relation",
			err:  errors.New(`relation "todos" is invalid`),
			want: false,
		},
		{
			name: "only does not exist",
			err:  errors.New(`function create_todos_table() does not exist`),
			want: false,
		},
		{
			name: "case sensitive",
			err:  errors.New(`RELATION "todos" DOES NOT EXIST`),
			want: false,
		},
		{
			name: "nil",
			err:  nil,
			want: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsMissingRelation(tc.err); got != tc.want {
				t.Errorf("IsMissingRelation(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
