package dom

import "testing"

func TestTree(t *testing.T) {
	root := mustParse(t, `<x-card title="a &quot;b&quot;"><p>Hi</p>
<!-- note --></x-card>`)

	want := `#document
  <x-card> title="a \"b\""
    <p>
      #text: "Hi"
    #comment: " note "
`
	if got := Tree(root); got != want {
		t.Errorf("Tree() =\n%s\nwant\n%s", got, want)
	}
}
