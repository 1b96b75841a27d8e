package depscan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract_RequireStyle(t *testing.T) {
	deps := Extract(`const lp = require('left-pad');`)
	assert.Equal(t, Set{"left-pad": "latest"}, deps)
}

func TestExtract_ImportStyle(t *testing.T) {
	deps := Extract(`import lodash from 'lodash';`)
	assert.Equal(t, Set{"lodash": "latest"}, deps)
}

func TestExtract_SideEffectImport(t *testing.T) {
	deps := Extract(`import 'dotenv/config';`)
	assert.Equal(t, Set{"dotenv/config": "latest"}, deps)
}

func TestExtract_ScopedPinnedVersion(t *testing.T) {
	deps := Extract(`require('@scope/pkg@1.2.3')`)
	assert.Equal(t, Set{"@scope/pkg": "latest"}, deps)
}

func TestExtract_ExcludesBuiltins(t *testing.T) {
	deps := Extract(`
		const fs = require('fs');
		const path = require('path');
		const axios = require('axios');
	`)
	assert.Equal(t, Set{"axios": "latest"}, deps)
}

func TestExtract_ExcludesRelativePaths(t *testing.T) {
	deps := Extract(`const helpers = require('./helpers');`)
	assert.Empty(t, deps)
}

func TestExtract_Deduplicates(t *testing.T) {
	deps := Extract(`
		const a = require('axios');
		import axios2 from 'axios';
	`)
	assert.Equal(t, Set{"axios": "latest"}, deps)
}

func TestExtract_NoDependencies(t *testing.T) {
	deps := Extract(`module.exports = function(items){ return items; };`)
	assert.Empty(t, deps)
}
